package handler

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"plumbstore/internal/model"
	"plumbstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const imageFormField = "image"

// PlumberRequestHandler handles service request HTTP requests.
type PlumberRequestHandler struct {
	service        service.PlumberRequestService
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewPlumberRequestHandler creates a new plumber request handler.
func NewPlumberRequestHandler(service service.PlumberRequestService, maxUploadBytes int64, logger zerolog.Logger) *PlumberRequestHandler {
	return &PlumberRequestHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("handler", "plumber_request").Logger(),
	}
}

// Create handles POST /api/plumber-requests. Accepts multipart/form-data with an optional
// "image" file, or a plain JSON body.
func (h *PlumberRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var (
		req   model.CreatePlumberRequest
		image *service.ImageUpload
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		// Leave room for the text fields around the file.
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusBadRequest, model.ErrCodeInvalidImage, "image exceeds the upload limit", h.logger)
				return
			}
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid multipart body", h.logger)
			return
		}
		defer r.MultipartForm.RemoveAll()

		req.Address = r.FormValue("address")
		req.PhoneNumber = r.FormValue("phoneNumber")
		req.ProblemDescription = r.FormValue("problemDescription")

		file, header, err := r.FormFile(imageFormField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidImage, "unreadable image upload", h.logger)
			return
		default:
			defer file.Close()
			if header.Size > h.maxUploadBytes {
				writeError(w, http.StatusBadRequest, model.ErrCodeInvalidImage, "image exceeds the upload limit", h.logger)
				return
			}
			image = &service.ImageUpload{
				Filename:    header.Filename,
				ContentType: strings.ToLower(header.Header.Get("Content-Type")),
				Body:        file,
			}
		}
	} else if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	created, err := h.service.CreateRequest(r.Context(), actor, &req, image)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListForUser handles GET /api/plumber-requests/user/{userId}.
func (h *PlumberRequestHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := int64Param(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid user ID", h.logger)
		return
	}

	requests, err := h.service.ListRequestsForUser(r.Context(), actor, userID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// ListAll handles GET /api/plumber-requests/all.
func (h *PlumberRequestHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	requests, err := h.service.ListAllRequests(r.Context(), actor)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// UpdateStatus handles PATCH /api/plumber-requests/{id}/status.
func (h *PlumberRequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid request ID format", h.logger)
		return
	}

	var req model.StatusUpdateRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// RateAndComment handles PATCH /api/plumber-requests/{id}/rating-comment.
func (h *PlumberRequestHandler) RateAndComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid request ID format", h.logger)
		return
	}

	var req model.RatingCommentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	updated, err := h.service.RateAndComment(r.Context(), actor, id, &req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
