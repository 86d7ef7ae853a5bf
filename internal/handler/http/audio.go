package http

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/errors"
	"github.com/francoflex/francoflex_service/internal/service"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// Multipart overhead allowed on top of the audio size limit.
const multipartSlack = 1 << 20

// AudioHandler handles learner recording uploads.
type AudioHandler struct {
	log   zerolog.Logger
	audio *service.AudioService
}

// NewAudioHandler creates a new audio handler.
func NewAudioHandler(log zerolog.Logger, audio *service.AudioService) *AudioHandler {
	return &AudioHandler{log: log, audio: audio}
}

// Upload handles POST /api/upload_audio
//
// Request: multipart/form-data with a "file" (or "audio") part, "user_id" and
// an optional "session_id".
func (h *AudioHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, client.MaxAudioBytes+multipartSlack)
	if err := r.ParseMultipartForm(client.MaxAudioBytes + multipartSlack); err != nil {
		handleError(h.log, w, errors.Validation("failed to parse multipart form, maximum size is 10MB"))
		return
	}

	file, header, err := formAudio(r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	defer file.Close()

	userID, err := resolveUserID(r, r.FormValue("user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, client.MaxAudioBytes+1))
	if err != nil {
		handleError(h.log, w, errors.Validation("failed to read audio file"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if format := client.DetectAudioFormat(data); format != "" {
			contentType = "audio/" + format
		}
	}

	result, err := h.audio.UploadRecording(r.Context(), service.UploadRecordingReq{
		UserID:      userID,
		SessionID:   strings.TrimSpace(r.FormValue("session_id")),
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, result, "Audio uploaded")
}

func formAudio(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range []string{"file", "audio"} {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header, nil
		}
	}
	return nil, nil, errors.Validation("audio file is required (form field: 'file')")
}
