package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/design"
	"server/internal/storage"
	"server/internal/upload"
	"server/internal/workflow"
)

type stubVision struct {
	result         *domain.AnalysisResult
	err            error
	hasCredentials bool
	calls          int
	lastImageURL   string
}

func (s *stubVision) Analyze(ctx context.Context, imageURL string) (*domain.AnalysisResult, error) {
	s.calls++
	s.lastImageURL = imageURL
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubVision) HasCredentials() bool { return s.hasCredentials }

type stubDesign struct {
	result         *design.Result
	err            error
	hasCredentials bool
	calls          int
	lastReq        design.GenerateRequest
}

func (s *stubDesign) Generate(ctx context.Context, req design.GenerateRequest) (*design.Result, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubDesign) HasCredentials() bool { return s.hasCredentials }

type stubAppUploader struct {
	asset *upload.Asset
	err   error
	calls int
}

func (s *stubAppUploader) Upload(ctx context.Context, req upload.Request) (*upload.Asset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.asset, s.err
}

type stubClimate struct {
	hint string
}

func (s *stubClimate) ClimateHint(ip string) (string, error) { return s.hint, nil }

func fullAnalysis() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		SpaceType:        "backyard",
		Size:             "medium",
		ExistingFeatures: []string{"lawn"},
		Lighting:         "full sun",
		SoilType:         "loam",
		Climate:          "temperate",
		Challenges:       []string{},
		Opportunities:    []string{"patio"},
		Recommendations:  []string{"raised beds"},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	local := upload.NewLocalUploader(store, "http://localhost:8080/static")
	return &App{
		Config: &infra.Config{
			Port:            "8080",
			StorageBaseURL:  "http://localhost:8080/static",
			AllowedOrigins:  []string{"http://localhost:3000"},
			RateLimitPerMin: 100,
		},
		Log:      zerolog.New(io.Discard),
		Local:    local,
		Store:    store,
		Sessions: workflow.NewSessionStore(time.Minute),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func multipartBody(t *testing.T, field, filename, mime string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", mime)
	fw, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}
