package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"mediagen/internal/adapter/memory"
	"mediagen/internal/generation"
	"mediagen/internal/http/handlers"
)

type okGenerator struct{}

func (okGenerator) Generate(context.Context, generation.GenerateRequest) (generation.Result, error) {
	return generation.Result{URL: generation.TestImageURL, Prompt: "test", Model: "flux"}, nil
}

func newTestRouter(limit int) http.Handler {
	store := memory.NewStore()
	app := &handlers.App{
		Generator: okGenerator{},
		Sweeper:   generation.NewRecovery(store.Ledger(), nil, nil, nil, zerolog.Nop()),
		Jobs:      store.Ledger().Jobs,
		Registry:  generation.DefaultRegistry(),
		Logger:    zerolog.Nop(),
	}
	return NewRouter(app, Options{Logger: zerolog.Nop(), RateLimitPerMin: limit, CORSOrigins: []string{"*"}})
}

func TestRoutesAreWired(t *testing.T) {
	router := newTestRouter(10)
	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/v1/healthz", "", http.StatusOK},
		{http.MethodGet, "/v1/openapi.json", "", http.StatusOK},
		{http.MethodGet, "/docs", "", http.StatusOK},
		{http.MethodGet, "/models", "", http.StatusOK},
		{http.MethodGet, "/jobs/none", "", http.StatusNotFound},
		{http.MethodPost, "/generate", `{"prompt":"test","model":"flux","user_id":"u"}`, http.StatusOK},
		{http.MethodPost, "/check-pending", `{"user_id":"u"}`, http.StatusOK},
		{http.MethodGet, "/generate", "", http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestGenerateIsRateLimited(t *testing.T) {
	router := newTestRouter(1)
	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"test","model":"flux","user_id":"u"}`))
		req.RemoteAddr = "203.0.113.9:1000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.RemoteAddr = "203.0.113.9:1000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
