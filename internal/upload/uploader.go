package upload

import (
	"context"
	"errors"
	"strings"
)

// ErrNoFile indicates the caller supplied no file data. This is an input
// fault rejected before any network call.
var ErrNoFile = errors.New("upload: no file provided")

// ErrNotImage indicates the file is not an image MIME type.
var ErrNotImage = errors.New("upload: file must be an image")

// Request carries one asset to upload.
type Request struct {
	Filename  string
	MIME      string
	Data      []byte
	OwnerHint string
}

// Asset is the normalized result of an upload. Local reports whether the
// asset landed on the development filesystem store instead of the remote
// host; local URLs are generally not fetchable by the AI backends.
type Asset struct {
	ID           string
	URL          string
	Format       string
	Width        int
	Height       int
	Bytes        int64
	OriginalName string
	Local        bool
}

// Uploader is the contract implemented by all upload backends.
type Uploader interface {
	Upload(ctx context.Context, req Request) (*Asset, error)
}

// RemoteUploader is an Uploader that can also attempt the durable upload on
// its own, with no local fallback.
type RemoteUploader interface {
	Uploader
	UploadRemote(ctx context.Context, req Request) (*Asset, error)
}

// ValidateRequest applies the input-fault checks shared by all backends.
func ValidateRequest(req Request) error {
	if len(req.Data) == 0 {
		return ErrNoFile
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(req.MIME)), "image/") {
		return ErrNotImage
	}
	return nil
}
