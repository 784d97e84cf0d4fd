package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/generation"
)

const maxBodyBytes = 1 << 20

// Generator runs one generation end to end.
type Generator interface {
	Generate(ctx context.Context, req generation.GenerateRequest) (generation.Result, error)
}

// Sweeper reconciles a user's pending jobs.
type Sweeper interface {
	Sweep(ctx context.Context, userID string) (generation.Report, error)
}

// App holds the dependencies shared by every handler.
type App struct {
	Generator Generator
	Sweeper   Sweeper
	Jobs      domain.JobRepository
	Registry  *generation.Registry
	Logger    zerolog.Logger
	// Ping reports storage health; nil means always healthy.
	Ping func(ctx context.Context) error
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}
