package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mediagen/internal/domain"
)

type jobView struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Model        string     `json:"model"`
	MediaType    string     `json:"media_type"`
	Status       string     `json:"status"`
	Cost         *int       `json:"cost,omitempty"`
	ResultURL    string     `json:"result_url,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ParentID     string     `json:"parent_id,omitempty"`
	RemixCount   int        `json:"remix_count"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func newJobView(j *domain.Job) jobView {
	v := jobView{
		ID:           j.ID,
		UserID:       j.UserID,
		Model:        j.Model,
		MediaType:    string(j.MediaType),
		Status:       string(j.Status),
		ResultURL:    j.ResultURL,
		ErrorMessage: j.ErrorMessage,
		ParentID:     j.ParentID,
		RemixCount:   j.RemixCount,
		CreatedAt:    j.CreatedAt,
		CompletedAt:  j.CompletedAt,
	}
	if cost, ok := j.Cost.Get(); ok {
		v.Cost = &cost
	}
	return v
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("load job failed")
		a.error(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	a.json(w, http.StatusOK, newJobView(job))
}
