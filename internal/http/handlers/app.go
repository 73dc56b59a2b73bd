package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/providers/design"
	"server/internal/storage"
	"server/internal/upload"
	"server/internal/workflow"
)

// VisionAnalyzer is the analysis-backend contract the handlers depend on.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, imageURL string) (*domain.AnalysisResult, error)
	HasCredentials() bool
}

// DesignGenerator is the generation-backend contract the handlers depend on.
type DesignGenerator interface {
	Generate(ctx context.Context, req design.GenerateRequest) (*design.Result, error)
	HasCredentials() bool
}

// App is the handler container: configuration plus every injected dependency.
type App struct {
	Config   *infra.Config
	Log      infra.Logger
	Uploader upload.Uploader
	Local    *upload.LocalUploader
	Store    *storage.FileStore
	Vision   VisionAnalyzer
	Design   DesignGenerator
	Climate  geoip.ClimateResolver
	Sessions *workflow.SessionStore
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, message, details string) {
	a.json(w, status, errorResponse{Error: message, Details: details, Code: status})
}

// climateHint best-effort maps the caller's IP to a climate band for the
// degraded analysis fallback. Returns "" when no resolver is configured.
func (a *App) climateHint(r *http.Request) string {
	if a.Climate == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	hint, err := a.Climate.ClimateHint(host)
	if err != nil {
		return ""
	}
	return hint
}
