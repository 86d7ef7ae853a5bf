package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/service"
	"github.com/francoflex/francoflex_service/pkg/response"
)

// ConversationHandler handles session messages and the conversational mode.
type ConversationHandler struct {
	log          zerolog.Logger
	conversation *service.ConversationService
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(log zerolog.Logger, conversation *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{log: log, conversation: conversation}
}

// SaveMessage handles POST /api/save_message
func (h *ConversationHandler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	var req service.SaveMessageReq
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	msg, err := h.conversation.SaveMessage(r.Context(), req, callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSONWithMessage(w, http.StatusOK, msg, "Message saved")
}

// ListMessages handles GET /api/messages/{session_id}
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.conversation.ListMessages(r.Context(), chi.URLParam(r, "session_id"), callerID(r))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, messages)
}

// Greeting handles POST /api/generate_greeting
func (h *ConversationHandler) Greeting(w http.ResponseWriter, r *http.Request) {
	var req service.GreetingReq
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

	greeting, err := h.conversation.GenerateGreeting(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"greeting": greeting})
}

// SpeechToTextRequest is the body of POST /api/speech_to_text.
type SpeechToTextRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language"`
}

// SpeechToText handles POST /api/speech_to_text
func (h *ConversationHandler) SpeechToText(w http.ResponseWriter, r *http.Request) {
	var req SpeechToTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	text, err := h.conversation.SpeechToText(r.Context(), req.AudioURL, req.Language)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"text": text})
}

// Respond handles POST /api/conversational_response
func (h *ConversationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req service.ConversationReq
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

	reply, err := h.conversation.Respond(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, reply)
}
