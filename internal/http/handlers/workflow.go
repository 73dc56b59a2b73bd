package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/providers/design"
	"server/internal/upload"
	"server/internal/workflow"
	"server/internal/workflow/progress"
	"server/pkg/zip"
)

// analysisBudget bounds the background vision call; the workflow advances
// with a degraded fallback when it is exceeded.
const analysisBudget = 90 * time.Second

// generationBudget bounds the background image-generation call.
const generationBudget = 3 * time.Minute

type workflowCreated struct {
	ID string `json:"id"`
}

type progressView struct {
	Value     float64  `json:"value"`
	StepIndex int      `json:"stepIndex"`
	Steps     []string `json:"steps"`
}

type workflowView struct {
	ID         string                  `json:"id"`
	Stage      workflow.Stage          `json:"stage"`
	PreviewURL string                  `json:"previewUrl,omitempty"`
	ImageURL   string                  `json:"imageUrl,omitempty"`
	LocalOnly  bool                    `json:"localOnly,omitempty"`
	Analysis   *domain.AnalysisResult  `json:"analysis,omitempty"`
	Style      *styleView              `json:"style,omitempty"`
	Design     *domain.GeneratedDesign `json:"design,omitempty"`
	Progress   *progressView           `json:"progress,omitempty"`
}

type styleView struct {
	PresetID     string `json:"styleId,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// WorkflowCreate registers a new session with a machine at the home stage.
func (a *App) WorkflowCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := a.Sessions.Create()
	a.json(w, http.StatusCreated, workflowCreated{ID: id})
}

// WorkflowGet renders the current state of one session, including the
// cosmetic progress value for the in-flight stage.
func (a *App) WorkflowGet(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.viewOf(id, m))
}

// WorkflowBegin moves a session from home to uploading.
func (a *App) WorkflowBegin(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	if err := m.Begin(); err != nil {
		a.workflowError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.viewOf(id, m))
}

// WorkflowUpload accepts the yard photo for a session. The image lands in
// the local store immediately for preview, then goes to the media host; when
// that fails the workflow continues on the local copy alone. Analysis is
// kicked off in the background and the session advances to analyzing.
func (a *App) WorkflowUpload(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}

	req, err := uploadRequestFromForm(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "No file provided", "")
		return
	}
	if err := upload.ValidateRequest(*req); err != nil {
		a.uploadError(w, err)
		return
	}

	local, err := a.Local.Upload(r.Context(), *req)
	if err != nil {
		a.uploadError(w, err)
		return
	}
	preview := a.previewFor(local)

	remoteURL := local.URL
	localOnly := true
	if remote, err := a.remoteUpload(r.Context(), *req); err == nil && !remote.Local {
		remoteURL = remote.URL
		localOnly = false
	} else if err != nil {
		a.Log.Warn().Err(err).Str("session", id).Msg("durable upload failed, continuing on local copy")
	}

	epoch, err := m.AttachUpload(preview, remoteURL, localOnly)
	if err != nil {
		// The machine refused the upload, so the preview file is ours to
		// clean up.
		_ = preview.Release()
		a.workflowError(w, err)
		return
	}

	// Render the response before the background call can settle the stage.
	view := a.viewOf(id, m)
	hint := a.climateHint(r)
	go a.runAnalysis(m, epoch, id, remoteURL, localOnly, hint)

	a.json(w, http.StatusOK, view)
}

// remoteUpload attempts the durable upload without the local fallback. The
// workflow already holds its own local copy for the preview; a fallback copy
// written here would have no owner to release it.
func (a *App) remoteUpload(ctx context.Context, req upload.Request) (*upload.Asset, error) {
	if ru, ok := a.Uploader.(upload.RemoteUploader); ok {
		return ru.UploadRemote(ctx, req)
	}
	return a.Uploader.Upload(ctx, req)
}

func (a *App) runAnalysis(m *workflow.Machine, epoch uint64, id, imageURL string, localOnly bool, climateHint string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisBudget)
	defer cancel()

	result := a.analyze(ctx, id, imageURL, localOnly, climateHint)
	if !m.CompleteAnalysis(epoch, result) {
		a.Log.Debug().Str("session", id).Msg("stale analysis result discarded")
	}
}

// analyze always produces a usable result: a real analysis when the backend
// cooperates, the degraded fallback otherwise.
func (a *App) analyze(ctx context.Context, id, imageURL string, localOnly bool, climateHint string) *domain.AnalysisResult {
	if a.Vision == nil || !a.Vision.HasCredentials() || localOnly {
		return domain.FallbackAnalysis(climateHint)
	}
	result, err := a.Vision.Analyze(ctx, imageURL)
	if err != nil {
		a.Log.Warn().Err(err).Str("session", id).Msg("analysis failed, using fallback")
		return domain.FallbackAnalysis(climateHint)
	}
	return result
}

type styleRequest struct {
	StyleID      string `json:"styleId"`
	CustomPrompt string `json:"customPrompt"`
}

// WorkflowStyle records the style choice and starts generation in the
// background.
func (a *App) WorkflowStyle(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid payload", "")
		return
	}

	choice := domain.StyleChoice{
		PresetID:          strings.TrimSpace(req.StyleID),
		CustomDescription: strings.TrimSpace(req.CustomPrompt),
	}
	epoch, err := m.ChooseStyle(choice)
	if err != nil {
		a.workflowError(w, err)
		return
	}

	view := a.viewOf(id, m)
	go a.runGeneration(m, epoch, id, m.Snapshot())

	a.json(w, http.StatusOK, view)
}

func (a *App) runGeneration(m *workflow.Machine, epoch uint64, id string, snap workflow.Snapshot) {
	if snap.LocalOnly {
		// The backend cannot fetch a local-only URL, same as the analysis
		// path. Fail back to style selection without the upstream call.
		a.Log.Warn().Str("session", id).Msg("generation unavailable for local-only image")
		if !m.CompleteGeneration(epoch, nil, true) {
			a.Log.Debug().Str("session", id).Msg("stale generation failure discarded")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), generationBudget)
	defer cancel()

	req := design.GenerateRequest{
		Analysis:     snap.Analysis,
		Style:        snap.Choice.PresetID,
		CustomPrompt: snap.Choice.CustomDescription,
		ImageURL:     snap.RemoteURL,
	}
	result, err := a.Design.Generate(ctx, req)
	if err != nil {
		a.Log.Warn().Err(err).Str("session", id).Msg("generation failed")
		if !m.CompleteGeneration(epoch, nil, true) {
			a.Log.Debug().Str("session", id).Msg("stale generation failure discarded")
		}
		return
	}
	if !m.CompleteGeneration(epoch, &result.Design, false) {
		a.Log.Debug().Str("session", id).Msg("stale generation result discarded")
	}
}

// WorkflowBack returns from generating or results to style selection.
func (a *App) WorkflowBack(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	if err := m.Back(); err != nil {
		a.workflowError(w, err)
		return
	}
	a.json(w, http.StatusOK, a.viewOf(id, m))
}

// WorkflowReset returns the session to the home stage from anywhere.
func (a *App) WorkflowReset(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	m.Reset()
	a.json(w, http.StatusOK, a.viewOf(id, m))
}

// WorkflowDownload streams a zip with the before and after images. Only
// defined at the results stage.
func (a *App) WorkflowDownload(w http.ResponseWriter, r *http.Request) {
	id, m, ok := a.machine(w, r)
	if !ok {
		return
	}
	snap := m.Snapshot()
	if snap.Stage != workflow.StageResults || snap.Design == nil {
		a.workflowError(w, &workflow.TransitionError{Stage: snap.Stage, Action: "download"})
		return
	}

	before, beforeMIME, err := a.fetchAsset(r.Context(), snap.RemoteURL)
	if err != nil {
		a.Log.Warn().Err(err).Str("session", id).Msg("before image unavailable for download")
	}
	after, afterMIME, err := a.fetchAsset(r.Context(), snap.Design.ImageURL)
	if err != nil {
		a.error(w, http.StatusBadGateway, "Download failed", "generated image unavailable")
		return
	}

	archive := zip.ArchiveAssets([]zip.Asset{
		{Filename: "before", MIME: beforeMIME, Data: before},
		{Filename: "after", MIME: afterMIME, Data: after},
	})
	if len(archive) == 0 {
		a.error(w, http.StatusInternalServerError, "Download failed", "")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="landscape-design.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

// fetchAsset loads image bytes for the download archive, reading locally
// stored assets straight from the store and everything else over HTTP.
func (a *App) fetchAsset(ctx context.Context, rawURL string) ([]byte, string, error) {
	if rawURL == "" {
		return nil, "", fmt.Errorf("no asset url")
	}
	base := strings.TrimRight(a.Config.StorageBaseURL, "/")
	if base != "" && strings.HasPrefix(rawURL, base+"/") {
		key := strings.TrimPrefix(rawURL, base+"/")
		data, err := a.Store.Read(ctx, key)
		if err != nil {
			return nil, "", err
		}
		return data, http.DetectContentType(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch asset: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, "", err
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}

func (a *App) machine(w http.ResponseWriter, r *http.Request) (string, *workflow.Machine, bool) {
	id := chi.URLParam(r, "id")
	m, ok := a.Sessions.Get(id)
	if !ok {
		a.error(w, http.StatusNotFound, "Workflow not found", "")
		return "", nil, false
	}
	return id, m, true
}

func (a *App) workflowError(w http.ResponseWriter, err error) {
	var transition *workflow.TransitionError
	switch {
	case errors.As(err, &transition):
		a.error(w, http.StatusConflict, "Action not allowed", transition.Error())
	case errors.Is(err, domain.ErrNoStyle), errors.Is(err, domain.ErrAmbiguousStyle):
		a.error(w, http.StatusBadRequest, "Invalid style choice", err.Error())
	default:
		var unknown *domain.UnknownStyleError
		if errors.As(err, &unknown) {
			a.error(w, http.StatusBadRequest, "Invalid style choice", err.Error())
			return
		}
		a.Log.Error().Err(err).Msg("workflow action failed")
		a.error(w, http.StatusInternalServerError, "Workflow action failed", "")
	}
}

func (a *App) previewFor(asset *upload.Asset) *workflow.Preview {
	key := a.Local.Key(asset)
	if key == "" {
		return workflow.NewPreview(asset.URL, nil)
	}
	store := a.Store
	return workflow.NewPreview(asset.URL, func() error {
		return store.Remove(context.Background(), key)
	})
}

func (a *App) viewOf(id string, m *workflow.Machine) workflowView {
	snap := m.Snapshot()
	view := workflowView{
		ID:         id,
		Stage:      snap.Stage,
		PreviewURL: snap.PreviewURL,
		ImageURL:   snap.RemoteURL,
		LocalOnly:  snap.LocalOnly,
		Analysis:   snap.Analysis,
		Design:     snap.Design,
	}
	if snap.Choice.PresetID != "" || snap.Choice.CustomDescription != "" {
		view.Style = &styleView{
			PresetID:     snap.Choice.PresetID,
			CustomPrompt: snap.Choice.CustomDescription,
		}
	}
	switch snap.Stage {
	case workflow.StageAnalyzing:
		view.Progress = progressFor(progress.Analysis(), snap.StageEnteredAt, snap.AnalysisSettled)
	case workflow.StageGenerating:
		view.Progress = progressFor(progress.Generation(), snap.StageEnteredAt, snap.GenerationSettled)
	}
	return view
}

func progressFor(t progress.Tracker, enteredAt time.Time, settled bool) *progressView {
	elapsed := time.Since(enteredAt)
	steps := t.Steps()
	labels := make([]string, len(steps))
	for i, s := range steps {
		labels[i] = s.Label
	}
	return &progressView{
		Value:     t.Value(elapsed, settled),
		StepIndex: t.StepIndex(elapsed),
		Steps:     labels,
	}
}
