package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"server/internal/storage"
)

// LocalUploader persists assets into the filesystem store and serves them
// from the configured static base URL. It is the development fallback when
// the media host is not configured; downstream AI calls cannot fetch these
// URLs unless the instance is publicly reachable.
type LocalUploader struct {
	store   *storage.FileStore
	baseURL string
}

// NewLocalUploader wires a filesystem store and the public base URL for its keys.
func NewLocalUploader(store *storage.FileStore, baseURL string) *LocalUploader {
	return &LocalUploader{store: store, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload fulfils the Uploader interface.
func (u *LocalUploader) Upload(ctx context.Context, req Request) (*Asset, error) {
	if u == nil || u.store == nil {
		return nil, fmt.Errorf("upload: local uploader not configured")
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), extFor(req))
	storedKey, err := u.store.Write(ctx, key, req.Data)
	if err != nil {
		return nil, fmt.Errorf("upload: store asset: %w", err)
	}

	asset := &Asset{
		ID:           storedKey,
		URL:          u.baseURL + "/" + storedKey,
		Format:       formatFor(req.MIME),
		Bytes:        int64(len(req.Data)),
		OriginalName: req.Filename,
		Local:        true,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Data)); err == nil {
		asset.Width = cfg.Width
		asset.Height = cfg.Height
	}
	return asset, nil
}

var _ Uploader = (*LocalUploader)(nil)

// Key returns the storage key for an asset this uploader produced, so the
// owner can remove the file when the asset is released.
func (u *LocalUploader) Key(asset *Asset) string {
	if asset == nil || !asset.Local {
		return ""
	}
	return asset.ID
}

func extFor(req Request) string {
	if ext := path.Ext(req.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	switch formatFor(req.MIME) {
	case "jpg":
		return ".jpg"
	case "png":
		return ".png"
	case "webp":
		return ".webp"
	default:
		return ".bin"
	}
}

func formatFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return strings.TrimPrefix(strings.ToLower(mime), "image/")
	}
}
