// Package credentials persists kie.ai connection settings in
// integration_tokens so a deployment can run without KIE_* variables.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

const ProviderKie = "kie"

const (
	propBaseURL     = "base_url"
	propCallbackURL = "callback_url"
)

var ErrNothingToSave = errors.New("credentials: no settings given")

// KieSettings is the stored connection for the kie.ai provider. Blank
// fields mean "not stored".
type KieSettings struct {
	APIKey      string
	BaseURL     string
	CallbackURL string
}

func (k KieSettings) trimmed() KieSettings {
	return KieSettings{
		APIKey:      strings.TrimSpace(k.APIKey),
		BaseURL:     strings.TrimSpace(k.BaseURL),
		CallbackURL: strings.TrimSpace(k.CallbackURL),
	}
}

// Validate reports whether k holds anything to save and whether its URLs
// are absolute http(s) URLs.
func (k KieSettings) Validate() error {
	k = k.trimmed()
	if k.APIKey == "" && k.BaseURL == "" && k.CallbackURL == "" {
		return ErrNothingToSave
	}
	if k.BaseURL != "" {
		if err := checkURL(k.BaseURL); err != nil {
			return fmt.Errorf("%s: %w", propBaseURL, err)
		}
	}
	if k.CallbackURL != "" {
		if err := checkURL(k.CallbackURL); err != nil {
			return fmt.Errorf("%s: %w", propCallbackURL, err)
		}
	}
	return nil
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Kie loads the stored settings. A missing row yields zero settings.
func (s *Store) Kie(ctx context.Context) (KieSettings, error) {
	var (
		token string
		raw   []byte
	)
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, ProviderKie)
	if err := row.Scan(&token, &raw); err != nil {
		if infra.IsNoRows(err) {
			return KieSettings{}, nil
		}
		return KieSettings{}, fmt.Errorf("load kie credentials: %w", err)
	}
	props := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &props); err != nil {
			return KieSettings{}, fmt.Errorf("decode kie credential properties: %w", err)
		}
	}
	return KieSettings{
		APIKey:      strings.TrimSpace(token),
		BaseURL:     strings.TrimSpace(props[propBaseURL]),
		CallbackURL: strings.TrimSpace(props[propCallbackURL]),
	}, nil
}

// SaveKie stores the non-blank fields of k and leaves the others as they are.
func (s *Store) SaveKie(ctx context.Context, k KieSettings) error {
	if err := k.Validate(); err != nil {
		return err
	}
	k = k.trimmed()
	props := map[string]string{}
	if k.BaseURL != "" {
		props[propBaseURL] = k.BaseURL
	}
	if k.CallbackURL != "" {
		props[propCallbackURL] = k.CallbackURL
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, ProviderKie, k.APIKey, raw); err != nil {
		return fmt.Errorf("save kie credentials: %w", err)
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http url", raw)
	}
	return nil
}
