package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mediagen/internal/domain"
)

type checkPendingRequest struct {
	UserID string `json:"user_id"`
}

type checkPendingResponse struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

func (a *App) CheckPending(w http.ResponseWriter, r *http.Request) {
	var req checkPendingRequest
	if !a.decode(w, r, &req) {
		return
	}
	rep, err := a.Sweeper.Sweep(r.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			a.error(w, http.StatusBadRequest, "user_id is required")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("check pending failed")
		a.error(w, http.StatusInternalServerError, "failed to check pending jobs")
		return
	}
	a.json(w, http.StatusOK, checkPendingResponse{Checked: rep.Checked, Updated: rep.Updated})
}
