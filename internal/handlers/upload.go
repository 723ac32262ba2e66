package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"inventory-dashboard/internal/client"
	"inventory-dashboard/internal/models"

	"github.com/gorilla/mux"
)

const uploadFormField = "file"

// Uploader forwards files to the backend
type Uploader interface {
	Upload(ctx context.Context, resource models.Resource, filename string, content io.Reader) (*models.UploadAck, error)
}

// UploadHandler handles file uploads from the dashboard
type UploadHandler struct {
	uploader Uploader
	maxBytes int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploader Uploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		maxBytes: maxBytes,
	}
}

// Upload handles POST /api/dashboard/upload/{resource}
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	resource, err := models.ParseResource(mux.Vars(r)["resource"])
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Uploaded file is too large", nil)
			return
		}
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "No file uploaded", []models.ErrorDetail{
			{Field: uploadFormField, Issue: "required multipart file field"},
		})
		return
	}
	defer file.Close()

	slog.Info("Upload received",
		"resource", resource,
		"filename", header.Filename,
		"size", header.Size,
		"remote_addr", r.RemoteAddr,
	)

	ack, err := h.uploader.Upload(r.Context(), resource, header.Filename, file)
	if err != nil {
		var uploadErr *client.UploadError
		switch {
		case errors.As(err, &uploadErr) && uploadErr.Message != "":
			writeErrorResponse(w, http.StatusBadGateway, "upload_failed", uploadErr.Message, nil)
		case errors.Is(err, client.ErrUploadFailed):
			writeErrorResponse(w, http.StatusBadGateway, "upload_failed", "Upload failed", nil)
		default:
			slog.Error("Unexpected upload error", "resource", resource, "error", err)
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Upload failed", nil)
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, ack)
}
