package design

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("design: api key is required")

// ErrMissingImageURL indicates the caller did not provide the source image.
var ErrMissingImageURL = errors.New("design: image url is required")

// ErrMissingPrompt indicates neither a structured input nor a custom prompt was given.
var ErrMissingPrompt = errors.New("design: analysis result with style, or a custom prompt, is required")

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Detail     string
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("design: upstream status %d: %s (%s)", e.StatusCode, e.Detail, e.Code)
	}
	return fmt.Sprintf("design: upstream status %d: %s", e.StatusCode, e.Detail)
}

// ParseError indicates a 2xx response without an extractable image URL. Raw
// retains the body for diagnostics; the call is a failure even though the
// HTTP exchange succeeded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "design: extract generated image: " + e.Err.Error()
	}
	return "design: extract generated image failed"
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options configures the image-generation client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs image-generation calls against an OpenAI-style chat
// endpoint whose replies embed the produced image reference.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-image"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateRequest carries one of two mutually exclusive input shapes:
// structured (Analysis + Style) or freeform (CustomPrompt). ImageURL is
// always required.
type GenerateRequest struct {
	Analysis     *domain.AnalysisResult
	Style        string
	CustomPrompt string
	ImageURL     string
}

// Result is the outcome of a generation call. Content retains the raw
// message text the image URL was extracted from, for the passthrough
// response variant.
type Result struct {
	Design  domain.GeneratedDesign
	Content string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content  string `json:"content"`
			ImageURL string `json:"image_url"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Generate produces a redesigned image for the given source photo. The
// backend replies in chat form; the produced image reference is either a
// direct field, a markdown image inside the text, or a bare URL. No retries
// are performed.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	if imageURL == "" {
		return nil, ErrMissingImageURL
	}
	prompt, err := promptFor(req)
	if err != nil {
		return nil, err
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imageURL}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("design: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("design: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("design: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("design: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		serr := &StatusError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
		var decoded apiErrorResponse
		if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
			serr.Detail = decoded.Error.Message
			if decoded.Error.Code != nil {
				serr.Code = fmt.Sprint(decoded.Error.Code)
			}
		}
		return nil, serr
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ParseError{Raw: string(raw), Err: err}
	}
	if len(decoded.Choices) == 0 {
		return nil, &ParseError{Raw: string(raw), Err: errors.New("no choices in response")}
	}
	msg := decoded.Choices[0].Message

	resultURL := strings.TrimSpace(msg.ImageURL)
	if resultURL == "" {
		resultURL = firstImageURL(msg.Content)
	}
	if resultURL == "" {
		return nil, &ParseError{Raw: msg.Content, Err: errors.New("no image url in response")}
	}

	c.logger.Debug().Str("model", c.model).Str("url", resultURL).Msg("design: generated image")
	return &Result{
		Design:  domain.GeneratedDesign{ImageURL: resultURL},
		Content: msg.Content,
	}, nil
}

func promptFor(req GenerateRequest) (string, error) {
	custom := strings.TrimSpace(req.CustomPrompt)
	if custom != "" {
		return wrapCustomPrompt(custom), nil
	}
	if req.Analysis == nil || strings.TrimSpace(req.Style) == "" {
		return "", ErrMissingPrompt
	}
	return buildStyledPrompt(req.Style, req.Analysis), nil
}
