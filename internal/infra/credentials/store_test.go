package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagen/internal/sqlinline"
)

type stubExecutor struct {
	token string
	props string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, props: s.props, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	props string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 2 {
		return errors.New("expected token and properties")
	}
	token, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid token dest")
	}
	props, ok := dest[1].(*[]byte)
	if !ok {
		return errors.New("invalid properties dest")
	}
	*token = r.token
	if r.props != "" {
		*props = []byte(r.props)
	}
	return nil
}

func TestKieLoadsTokenAndProperties(t *testing.T) {
	store := NewStore(&stubExecutor{
		token: " abc123 ",
		props: `{"base_url":"https://kie.internal","callback_url":" https://hooks.example/kie "}`,
	})
	got, err := store.Kie(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KieSettings{
		APIKey:      "abc123",
		BaseURL:     "https://kie.internal",
		CallbackURL: "https://hooks.example/kie",
	}, got)
}

func TestKieTokenOnly(t *testing.T) {
	store := NewStore(&stubExecutor{token: "abc123"})
	got, err := store.Kie(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KieSettings{APIKey: "abc123"}, got)
}

func TestKieNoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	got, err := store.Kie(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KieSettings{}, got)
}

func TestKieErrors(t *testing.T) {
	_, err := NewStore(&stubExecutor{err: errors.New("connection reset")}).Kie(context.Background())
	require.Error(t, err)

	_, err = NewStore(&stubExecutor{token: "k", props: `["not","an","object"]`}).Kie(context.Background())
	require.Error(t, err)
}

func TestSaveKieSendsOnlyGivenFields(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	require.NoError(t, store.SaveKie(context.Background(), KieSettings{CallbackURL: " https://hooks.example/kie "}))

	assert.Equal(t, sqlinline.QUpsertProviderCredential, exec.exec.query)
	require.Len(t, exec.exec.args, 3)
	assert.Equal(t, ProviderKie, exec.exec.args[0])
	assert.Equal(t, "", exec.exec.args[1])
	var props map[string]string
	require.NoError(t, json.Unmarshal(exec.exec.args[2].([]byte), &props))
	assert.Equal(t, map[string]string{"callback_url": "https://hooks.example/kie"}, props)
}

func TestSaveKieKeyAndBaseURL(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	require.NoError(t, store.SaveKie(context.Background(), KieSettings{APIKey: " secret ", BaseURL: "http://localhost:9000"}))

	assert.Equal(t, "secret", exec.exec.args[1])
	var props map[string]string
	require.NoError(t, json.Unmarshal(exec.exec.args[2].([]byte), &props))
	assert.Equal(t, map[string]string{"base_url": "http://localhost:9000"}, props)
}

func TestSaveKieRejects(t *testing.T) {
	store := NewStore(&stubExecutor{})
	assert.ErrorIs(t, store.SaveKie(context.Background(), KieSettings{APIKey: " "}), ErrNothingToSave)
	assert.Error(t, store.SaveKie(context.Background(), KieSettings{BaseURL: "kie.ai"}))
	assert.Error(t, store.SaveKie(context.Background(), KieSettings{CallbackURL: "ftp://hooks.example"}))
}
