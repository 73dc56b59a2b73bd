package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"server/internal/providers/vision"
)

type analyzeRequest struct {
	ImageURL string `json:"imageUrl"`
}

// Analyze proxies the vision backend: image URL in, structured analysis out.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid payload", "")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "No image URL provided", "")
		return
	}
	if a.Vision == nil || !a.Vision.HasCredentials() {
		a.error(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	result, err := a.Vision.Analyze(r.Context(), req.ImageURL)
	if err != nil {
		a.analyzeError(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

func (a *App) analyzeError(w http.ResponseWriter, err error) {
	var refusal *vision.RefusalError
	var status *vision.StatusError
	var parse *vision.ParseError
	switch {
	case errors.Is(err, vision.ErrMissingAPIKey):
		a.error(w, http.StatusInternalServerError, "API key not configured", "")
	case errors.Is(err, vision.ErrUnfetchableImageURL):
		a.error(w, http.StatusBadRequest, "No image URL provided", "image url must be publicly fetchable")
	case errors.As(err, &refusal):
		// Refusal is a distinct outcome, not a parse problem; 422 tells the
		// frontend to show content-specific messaging.
		a.error(w, http.StatusUnprocessableEntity, "Analysis refused", refusal.Detail)
	case errors.As(err, &status):
		a.error(w, status.StatusCode, "Analysis failed", status.Detail)
	case errors.As(err, &parse):
		a.Log.Warn().Str("raw", truncate(parse.Raw, 512)).Msg("analysis parse failure")
		a.error(w, http.StatusInternalServerError, "Failed to parse analysis result", "")
	case errors.Is(err, vision.ErrEmptyContent):
		a.error(w, http.StatusInternalServerError, "Invalid API response", "")
	default:
		a.Log.Error().Err(err).Msg("analysis failed")
		a.error(w, http.StatusInternalServerError, "Analysis failed", "")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
