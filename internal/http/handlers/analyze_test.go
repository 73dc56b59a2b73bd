package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"server/internal/domain"
	"server/internal/providers/vision"
)

func TestAnalyzeSuccess(t *testing.T) {
	app := newTestApp(t)
	stub := &stubVision{hasCredentials: true, result: fullAnalysis()}
	app.Vision = stub

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/yard.jpg"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.SpaceType != "backyard" {
		t.Fatalf("result = %+v", result)
	}
	if stub.lastImageURL != "https://img.example/yard.jpg" {
		t.Fatalf("image url = %q", stub.lastImageURL)
	}
}

func TestAnalyzeMissingImageURL(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "No image URL provided" {
		t.Fatalf("error = %q", got)
	}
}

func TestAnalyzeWithoutCredentials(t *testing.T) {
	app := newTestApp(t)
	stub := &stubVision{hasCredentials: false}
	app.Vision = stub

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/a.jpg"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "API key not configured" {
		t.Fatalf("error = %q", got)
	}
	if stub.calls != 0 {
		t.Fatal("backend must not be called without credentials")
	}
}

func TestAnalyzeRefusalMapsTo422(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true, err: &vision.RefusalError{Detail: "people in frame"}}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/a.jpg"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error != "Analysis refused" || resp.Details != "people in frame" {
		t.Fatalf("body = %+v", resp)
	}
}

func TestAnalyzeUpstreamStatusPropagates(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true, err: &vision.StatusError{StatusCode: 429, Detail: "rate limited"}}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/a.jpg"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Error != "Analysis failed" || resp.Details != "rate limited" {
		t.Fatalf("body = %+v", resp)
	}
}

func TestAnalyzeParseFailure(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true, err: &vision.ParseError{Raw: "prose output"}}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/a.jpg"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "Failed to parse analysis result" {
		t.Fatalf("error = %q", got)
	}
}

func TestAnalyzeUnfetchableURL(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true, err: vision.ErrUnfetchableImageURL}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "blob:abc"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalyzeEmptyContent(t *testing.T) {
	app := newTestApp(t)
	app.Vision = &stubVision{hasCredentials: true, err: vision.ErrEmptyContent}

	rec := postJSON(t, app.Analyze, "/api/analyze", map[string]string{"imageUrl": "https://img.example/a.jpg"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "Invalid API response" {
		t.Fatalf("error = %q", got)
	}
}
