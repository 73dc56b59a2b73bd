package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"server/internal/domain"
	"server/internal/providers/design"
)

type generateRequest struct {
	AnalysisResult *domain.AnalysisResult `json:"analysisResult,omitempty"`
	Style          string                 `json:"style,omitempty"`
	CustomPrompt   string                 `json:"customPrompt,omitempty"`
	ImageURL       string                 `json:"imageUrl"`
}

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
	Result   string `json:"result,omitempty"`
}

// Generate proxies the image-generation backend. Input is either the
// structured analysis+style shape or a freeform custom prompt, always with
// the source image URL.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid payload", "")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "Missing imageUrl", "")
		return
	}
	if strings.TrimSpace(req.CustomPrompt) == "" && (req.AnalysisResult == nil || strings.TrimSpace(req.Style) == "") {
		a.error(w, http.StatusBadRequest, "Missing analysis result or style", "")
		return
	}
	if a.Design == nil || !a.Design.HasCredentials() {
		a.error(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	result, err := a.Design.Generate(r.Context(), design.GenerateRequest{
		Analysis:     req.AnalysisResult,
		Style:        req.Style,
		CustomPrompt: req.CustomPrompt,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		a.generateError(w, err)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		ImageURL: result.Design.ImageURL,
		Result:   result.Content,
	})
}

func (a *App) generateError(w http.ResponseWriter, err error) {
	var status *design.StatusError
	var parse *design.ParseError
	switch {
	case errors.Is(err, design.ErrMissingAPIKey):
		a.error(w, http.StatusInternalServerError, "API key not configured", "")
	case errors.Is(err, design.ErrMissingImageURL):
		a.error(w, http.StatusBadRequest, "Missing imageUrl", "")
	case errors.Is(err, design.ErrMissingPrompt):
		a.error(w, http.StatusBadRequest, "Missing analysis result or style", "")
	case errors.As(err, &status):
		a.error(w, status.StatusCode, "Generation failed", status.Detail)
	case errors.As(err, &parse):
		a.Log.Warn().Str("raw", truncate(parse.Raw, 512)).Msg("generation parse failure")
		a.error(w, http.StatusInternalServerError, "Generation failed", "no image in response")
	default:
		a.Log.Error().Err(err).Msg("generation failed")
		a.error(w, http.StatusInternalServerError, "Generation failed", err.Error())
	}
}
