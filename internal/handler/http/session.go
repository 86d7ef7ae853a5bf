package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/service"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// SessionHandler handles session building and progress tracking endpoints.
type SessionHandler struct {
	log      zerolog.Logger
	sessions *service.SessionService
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(log zerolog.Logger, sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{log: log, sessions: sessions}
}

// Create handles POST /api/create_session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionReq
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

	session, err := h.sessions.CreateSession(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, session, "Session created")
}

// List handles GET /api/sessions/{user_id}
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, sessions)
}

// Latest handles GET /api/session/{user_id}
func (h *SessionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	session, err := h.sessions.LatestSession(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, session)
}

// Get handles GET /api/session/{user_id}/{session_id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := resolveUserID(r, chi.URLParam(r, "user_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	session, err := h.sessions.GetSession(r.Context(), userID, chi.URLParam(r, "session_id"))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, session)
}

// UpdateQuestionStatus handles POST /api/update_question_status
func (h *SessionHandler) UpdateQuestionStatus(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateQuestionStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	session, err := h.sessions.UpdateQuestionStatus(r.Context(), req, callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, session, "Question status updated")
}

// NextQuestion handles GET /api/next_question/{session_id}
func (h *SessionHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	next, err := h.sessions.GetNextQuestion(r.Context(), chi.URLParam(r, "session_id"), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	if next == nil {
		response.JSONWithMessage(w, http.StatusOK, nil, "All questions completed")
		return
	}
	response.JSON(w, http.StatusOK, next)
}
