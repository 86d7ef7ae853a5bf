package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/service"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// PreferenceHandler handles learner preference endpoints.
type PreferenceHandler struct {
	log         zerolog.Logger
	preferences *service.PreferenceService
}

// NewPreferenceHandler creates a new preference handler.
func NewPreferenceHandler(log zerolog.Logger, preferences *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{log: log, preferences: preferences}
}

// Save handles POST /api/save_preferences
func (h *PreferenceHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req service.SavePreferencesReq
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

	pref, err := h.preferences.Save(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, pref, "Preferences saved")
}

// Get handles GET /api/preferences/{user_id}
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	pref, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	if pref == nil {
		response.JSONWithMessage(w, http.StatusOK, nil, "No preferences found")
		return
	}
	response.JSON(w, http.StatusOK, pref)
}
