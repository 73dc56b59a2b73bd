package handlers

import (
	"net/http"

	"server/internal/domain"
)

// Styles serves the fixed design-style catalog.
func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": domain.PresetStyles()})
}
