package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/service"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// PronunciationHandler handles scoring and stored analysis endpoints.
type PronunciationHandler struct {
	log           zerolog.Logger
	pronunciation *service.PronunciationService
}

// NewPronunciationHandler creates a new pronunciation handler.
func NewPronunciationHandler(log zerolog.Logger, pronunciation *service.PronunciationService) *PronunciationHandler {
	return &PronunciationHandler{log: log, pronunciation: pronunciation}
}

// Analyze handles POST /api/analyze_pronunciation
func (h *PronunciationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeReq
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}
	// user_id is optional here; it only feeds the dialect lookup.
	if req.UserID != "" || callerID(r) != "" {
		userID, err := resolveUserID(r, req.UserID)
		if err != nil {
			handleError(h.log, w, err)
			return
		}
		req.UserID = userID
	}

	result, err := h.pronunciation.Analyze(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// Save handles POST /api/save_pronunciation_analysis
func (h *PronunciationHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req service.SaveAnalysisReq
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}
	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	req.UserID = userID

	analysis, err := h.pronunciation.Save(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, analysis, "Pronunciation analysis saved")
}

// List handles GET /api/pronunciation_analyses/{user_id}?level=B1
func (h *PronunciationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	analyses, err := h.pronunciation.List(r.Context(), userID, r.URL.Query().Get("level"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, analyses)
}

// Latest handles GET /api/latest_pronunciation_analysis/{user_id}
func (h *PronunciationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	analysis, err := h.pronunciation.Latest(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	if analysis == nil {
		response.JSONWithMessage(w, http.StatusOK, nil, "No pronunciation analysis found")
		return
	}
	response.JSON(w, http.StatusOK, analysis)
}
