package handlers

import (
	"errors"
	"net/http"

	"mediagen/internal/domain"
	"mediagen/internal/generation"
	"mediagen/internal/middleware"
)

type generateRequest struct {
	Prompt         string   `json:"prompt"`
	Model          string   `json:"model"`
	AspectRatio    string   `json:"aspect_ratio"`
	Images         []string `json:"images"`
	NegativePrompt string   `json:"negative_prompt"`
	UserID         string   `json:"user_id"`
	Resolution     string   `json:"resolution"`
	ParentID       string   `json:"parent_id"`
	ContestEntryID string   `json:"contest_entry_id"`
}

type generateResponse struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	JobID  string `json:"job_id,omitempty"`
}

// Generate blocks until the job reaches a terminal state or times out.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.Generator.Generate(r.Context(), generation.GenerateRequest{
		Request: generation.Request{
			Prompt:         req.Prompt,
			Model:          req.Model,
			AspectRatio:    req.AspectRatio,
			Images:         req.Images,
			NegativePrompt: req.NegativePrompt,
			Resolution:     req.Resolution,
		},
		UserID:         req.UserID,
		ParentID:       req.ParentID,
		ContestEntryID: req.ContestEntryID,
		RequestID:      middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		code := generateStatus(err)
		if code >= http.StatusInternalServerError {
			a.Logger.Error().Err(err).
				Str("model", req.Model).
				Str("user_id", req.UserID).
				Str("request_id", middleware.RequestIDFromContext(r.Context())).
				Msg("generate failed")
		}
		a.error(w, code, err.Error())
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Image:  res.URL,
		Prompt: res.Prompt,
		Model:  res.Model,
		JobID:  res.JobID,
	})
}

func generateStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnsupportedModel):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrNotFound):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
