package vision

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
var ErrMissingAPIKey = errors.New("vision: api key is required")

// ErrEmptyContent indicates a 2xx completion whose message content was empty.
// An empty reply is a failure, never a valid empty analysis.
var ErrEmptyContent = errors.New("vision: empty completion content")

// ErrUnfetchableImageURL indicates the caller passed a reference the remote
// backend cannot fetch, e.g. a local blob handle.
var ErrUnfetchableImageURL = errors.New("vision: image url must be publicly fetchable")

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Detail     string
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("vision: upstream status %d: %s (%s)", e.StatusCode, e.Detail, e.Code)
	}
	return fmt.Sprintf("vision: upstream status %d: %s", e.StatusCode, e.Detail)
}

// RefusalError indicates the model explicitly declined to analyze the image.
// This is distinct from a parse failure and is surfaced to users differently.
type RefusalError struct {
	Detail string
}

func (e *RefusalError) Error() string {
	return "vision: backend refused to analyze image: " + e.Detail
}

// ParseError indicates a 2xx response whose body did not contain the expected
// JSON. Raw retains the model output for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "vision: parse analysis result: " + e.Err.Error()
	}
	return "vision: parse analysis result failed"
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options configures the vision completion client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs multimodal chat-completion calls against an OpenAI-style backend.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
// A missing API key is not a construction error; it surfaces per call so the
// service can boot without credentials.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o"
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

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
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
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Analyze sends the fixed analysis prompt plus the image reference to the
// completion backend and returns the validated structured result. It performs
// no retries; retry is always a user-visible action upstream.
func (c *Client) Analyze(ctx context.Context, imageURL string) (*domain.AnalysisResult, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	imageURL = strings.TrimSpace(imageURL)
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, ErrUnfetchableImageURL
	}

	payload := chatRequest{
		Model:       c.model,
		MaxTokens:   1000,
		Temperature: 0.7,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContent{
				{Type: "text", Text: analysisPrompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imageURL}},
			},
		}},
	}

	content, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := domain.ParseAnalysis([]byte(content))
	if err == nil {
		return result, nil
	}
	fragment, ok := extractJSONFragment(content)
	if ok {
		if result, ferr := domain.ParseAnalysis([]byte(fragment)); ferr == nil {
			return result, nil
		}
	}
	return nil, &ParseError{Raw: content, Err: err}
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vision: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("vision: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("vision: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vision: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", statusErrorFromBody(resp.StatusCode, raw)
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", &ParseError{Raw: string(raw), Err: err}
	}
	if len(decoded.Choices) == 0 {
		return "", &ParseError{Raw: string(raw), Err: errors.New("no choices in response")}
	}
	choice := decoded.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return "", &RefusalError{Detail: refusal}
	}
	if choice.FinishReason == "content_filter" {
		return "", &RefusalError{Detail: "completion stopped by content filter"}
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}
	c.logger.Debug().Str("model", c.model).Int("content_len", len(content)).Msg("vision: completion received")
	return content, nil
}

func statusErrorFromBody(status int, raw []byte) *StatusError {
	serr := &StatusError{StatusCode: status, Detail: strings.TrimSpace(string(raw))}
	var decoded apiErrorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		serr.Detail = decoded.Error.Message
		if decoded.Error.Code != nil {
			serr.Code = fmt.Sprint(decoded.Error.Code)
		}
	}
	return serr
}
