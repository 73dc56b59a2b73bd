package upload

import (
	"context"
	"errors"
	"fmt"

	"server/internal/providers/cloudinary"
)

type cloudinaryClient interface {
	Upload(ctx context.Context, req cloudinary.UploadRequest) (*cloudinary.Asset, error)
	HasCredentials() bool
}

// CloudinaryUploader pushes assets to the external media host and falls back
// to another uploader (usually the local store) when credentials are missing
// or the host is unreachable. Callers that require a durable, publicly
// fetchable URL must check Asset.Local on the result.
type CloudinaryUploader struct {
	client   cloudinaryClient
	fallback Uploader
}

// NewCloudinaryUploader wires a media-host client with an optional fallback uploader.
func NewCloudinaryUploader(client cloudinaryClient, fallback Uploader) *CloudinaryUploader {
	return &CloudinaryUploader{client: client, fallback: fallback}
}

// Upload fulfils the Uploader interface.
func (u *CloudinaryUploader) Upload(ctx context.Context, req Request) (*Asset, error) {
	asset, err := u.UploadRemote(ctx, req)
	if err != nil {
		if shouldFallback(err) && u.fallback != nil {
			return u.fallback.Upload(ctx, req)
		}
		return nil, err
	}
	return asset, nil
}

// UploadRemote attempts only the media host and never degrades to the
// fallback. Callers that already hold a local copy of the asset use this so
// a host failure cannot write a second, unowned copy.
func (u *CloudinaryUploader) UploadRemote(ctx context.Context, req Request) (*Asset, error) {
	if u == nil {
		return nil, fmt.Errorf("upload: cloudinary uploader not configured")
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if u.client == nil || !u.client.HasCredentials() {
		return nil, cloudinary.ErrMissingCredentials
	}

	asset, err := u.client.Upload(ctx, cloudinary.UploadRequest{
		Filename:  req.Filename,
		MIME:      req.MIME,
		Data:      req.Data,
		OwnerHint: req.OwnerHint,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{
		ID:           asset.ID,
		URL:          asset.URL,
		Format:       asset.Format,
		Width:        asset.Width,
		Height:       asset.Height,
		Bytes:        asset.Bytes,
		OriginalName: asset.OriginalName,
	}, nil
}

var _ RemoteUploader = (*CloudinaryUploader)(nil)

// shouldFallback decides whether a host failure degrades to local storage.
// Input faults never do; credential and transport problems always do.
func shouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoFile) || errors.Is(err, ErrNotImage) {
		return false
	}
	if errors.Is(err, cloudinary.ErrMissingCredentials) {
		return true
	}
	var serr *cloudinary.StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode >= 500
	}
	// Transport-level errors (DNS, timeouts) arrive wrapped; treat them as
	// host-unreachable.
	return true
}
