package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"server/internal/providers/cloudinary"
	"server/internal/upload"
)

const maxUploadMemory = 32 << 20

type uploadResponse struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Format       string `json:"format"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Size         int64  `json:"size"`
	OriginalName string `json:"originalName"`
}

// Upload receives a multipart image and pushes it to the media host,
// degrading to local storage when the host is unavailable.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	req, err := uploadRequestFromForm(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "No file provided", "")
		return
	}

	asset, err := a.Uploader.Upload(r.Context(), *req)
	if err != nil {
		a.uploadError(w, err)
		return
	}
	a.json(w, http.StatusOK, uploadResponseFrom(asset))
}

func (a *App) uploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrNoFile):
		a.error(w, http.StatusBadRequest, "No file provided", "")
	case errors.Is(err, upload.ErrNotImage):
		a.error(w, http.StatusBadRequest, "Upload failed", "file must be an image")
	case errors.Is(err, cloudinary.ErrMissingCredentials):
		a.error(w, http.StatusInternalServerError, "Media host not configured", "")
	default:
		var serr *cloudinary.StatusError
		if errors.As(err, &serr) {
			a.error(w, serr.StatusCode, "Upload failed", serr.Detail)
			return
		}
		a.Log.Error().Err(err).Msg("upload failed")
		a.error(w, http.StatusInternalServerError, "Upload failed", err.Error())
	}
}

func uploadRequestFromForm(r *http.Request) (*upload.Request, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &upload.Request{
		Filename:  header.Filename,
		MIME:      mimeFor(header, data),
		Data:      data,
		OwnerHint: strings.TrimSpace(r.FormValue("userId")),
	}, nil
}

func mimeFor(header *multipart.FileHeader, data []byte) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func uploadResponseFrom(asset *upload.Asset) uploadResponse {
	return uploadResponse{
		ID:           asset.ID,
		URL:          asset.URL,
		Format:       asset.Format,
		Width:        asset.Width,
		Height:       asset.Height,
		Size:         asset.Bytes,
		OriginalName: asset.OriginalName,
	}
}
