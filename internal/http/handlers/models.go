package handlers

import "net/http"

type modelView struct {
	Model     string         `json:"model"`
	Kind      string         `json:"kind"`
	MediaType string         `json:"media_type"`
	MaxImages int            `json:"max_images"`
	Price     int            `json:"price"`
	Prices    map[string]int `json:"prices,omitempty"`
}

func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	entries := a.Registry.Models()
	out := make([]modelView, 0, len(entries))
	for _, e := range entries {
		out = append(out, modelView{
			Model:     e.Model,
			Kind:      string(e.Kind),
			MediaType: string(e.MediaType),
			MaxImages: e.MaxImages,
			Price:     e.Price,
			Prices:    e.Prices,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"models": out})
}
