package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/actuallystonmai/site-content/internal/assembler"
	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/actuallystonmai/site-content/internal/upload"
	"github.com/rs/zerolog/log"
)

// GET /api/content
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Latest(r.Context())
	if err != nil {
		// Fresh deployment
		if errors.Is(err, domain.ErrNoContent) {
			writeJSON(w, r, http.StatusOK, struct{}{})
			return
		}
		log.Error().Err(err).Msg("handler: fetch content failed")
		writeError(w, r, http.StatusInternalServerError, "Failed to fetch content", err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, snap)
}

// POST /api/content
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	input, images, err := parseSubmission(w, r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		if uerr, ok := upload.AsError(err); ok {
			writeError(w, r, uerr.Status, "Upload rejected", uerr.Msg)
			return
		}
		if assembler.IsInvalidInputError(err) {
			writeError(w, r, http.StatusBadRequest, "Invalid content", err.Error())
			return
		}
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	snap, err := h.service.Replace(r.Context(), input, images)
	if err != nil {
		log.Error().Err(err).Int("images", len(images)).Msg("handler: replace content failed")
		writeError(w, r, http.StatusInternalServerError, "Failed to save content", err.Error())
		return
	}

	writeJSON(w, r, http.StatusCreated, snap)
}

// parseSubmission reads a multipart, urlencoded or JSON body. Files are
// checked before any text field is looked at.
func parseSubmission(w http.ResponseWriter, r *http.Request) (assembler.Input, []upload.Image, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, upload.MaxRequestBytes)
		if err := r.ParseMultipartForm(upload.MaxMemory); err != nil {
			return assembler.Input{}, nil, bodyError(err)
		}

		images, err := upload.Images(r.MultipartForm.File)
		if err != nil {
			return assembler.Input{}, nil, err
		}
		input, err := assembler.ParseForm(r.MultipartForm.Value)
		if err != nil {
			return assembler.Input{}, nil, err
		}
		return input, images, nil

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFieldBytes)
		if err := r.ParseForm(); err != nil {
			return assembler.Input{}, nil, bodyError(err)
		}
		input, err := assembler.ParseForm(r.PostForm)
		return input, nil, err

	case "application/json":
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, upload.MaxFieldBytes))
		if err != nil {
			return assembler.Input{}, nil, bodyError(err)
		}
		input, err := assembler.ParseJSON(body)
		return input, nil, err

	default:
		return assembler.Input{}, nil, &upload.Error{
			Status: http.StatusUnsupportedMediaType,
			Msg:    "expected multipart/form-data, application/x-www-form-urlencoded or application/json",
		}
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &upload.Error{Status: http.StatusRequestEntityTooLarge, Msg: "request body too large"}
	}
	return err
}
