package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

// ErrMissingCredentials indicates the client cannot reach the media host.
var ErrMissingCredentials = errors.New("cloudinary: cloud name and upload preset are required")

// StatusError carries a non-2xx host response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cloudinary: upload status %d: %s", e.StatusCode, e.Detail)
}

// Options configures the media-host client. All values are opaque secrets
// passed through to the host, never parsed.
type Options struct {
	CloudName      string
	APIKey         string
	APISecret      string
	UploadPreset   string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client uploads binary assets to the Cloudinary REST endpoint.
type Client struct {
	cloudName    string
	apiKey       string
	apiSecret    string
	uploadPreset string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
}

// UploadRequest carries one asset to persist remotely.
type UploadRequest struct {
	Filename  string
	MIME      string
	Data      []byte
	OwnerHint string
}

// Asset is the normalized upload result. Metadata beyond URL is passed
// through from the host for display only.
type Asset struct {
	ID           string
	URL          string
	Format       string
	Width        int
	Height       int
	Bytes        int64
	OriginalName string
}

type uploadResponse struct {
	SecureURL        string `json:"secure_url"`
	PublicID         string `json:"public_id"`
	Format           string `json:"format"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Bytes            int64  `json:"bytes"`
	OriginalFilename string `json:"original_filename"`
	Error            struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com/v1_1"
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
		cloudName:    strings.TrimSpace(opts.CloudName),
		apiKey:       strings.TrimSpace(opts.APIKey),
		apiSecret:    strings.TrimSpace(opts.APISecret),
		uploadPreset: strings.TrimSpace(opts.UploadPreset),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
	}
}

// HasCredentials reports whether remote uploads can be attempted.
func (c *Client) HasCredentials() bool {
	return c.cloudName != "" && c.uploadPreset != ""
}

// Upload pushes the asset to the media host and returns its durable URL.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Asset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}
	if len(req.Data) == 0 {
		return nil, errors.New("cloudinary: no file data")
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", fileFieldName(req.Filename))
	if err != nil {
		return nil, fmt.Errorf("cloudinary: build form: %w", err)
	}
	if _, err := fw.Write(req.Data); err != nil {
		return nil, fmt.Errorf("cloudinary: write form file: %w", err)
	}
	_ = mw.WriteField("upload_preset", c.uploadPreset)
	_ = mw.WriteField("folder", folderFor(req.OwnerHint))
	if c.apiKey != "" && c.apiSecret != "" {
		_ = mw.WriteField("timestamp", fmt.Sprint(time.Now().Unix()))
		_ = mw.WriteField("api_key", c.apiKey)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary: finalize form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/auto/upload", c.baseURL, c.cloudName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: read response: %w", err)
	}

	var decoded uploadResponse
	if resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
			detail = decoded.Error.Message
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if decoded.SecureURL == "" {
		return nil, errors.New("cloudinary: response missing secure_url")
	}

	c.logger.Debug().Str("public_id", decoded.PublicID).Int64("bytes", decoded.Bytes).Msg("cloudinary: uploaded asset")
	return &Asset{
		ID:           decoded.PublicID,
		URL:          decoded.SecureURL,
		Format:       decoded.Format,
		Width:        decoded.Width,
		Height:       decoded.Height,
		Bytes:        decoded.Bytes,
		OriginalName: decoded.OriginalFilename,
	}, nil
}

func folderFor(ownerHint string) string {
	ownerHint = strings.TrimSpace(ownerHint)
	if ownerHint == "" {
		return "anonymous"
	}
	return "user_" + ownerHint
}

func fileFieldName(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "upload"
	}
	return filename
}
