package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/config"
	httphandler "github.com/francoflex/francoflex_service/internal/handler/http"
	"github.com/francoflex/francoflex_service/internal/middleware"
	"github.com/francoflex/francoflex_service/internal/service"
)

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Health        *httphandler.HealthHandler
	Preference    *httphandler.PreferenceHandler
	Session       *httphandler.SessionHandler
	Audio         *httphandler.AudioHandler
	Conversation  *httphandler.ConversationHandler
	Pronunciation *httphandler.PronunciationHandler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

// NewHTTPServer creates a new HTTP server. authService may be nil, in which
// case /api routes are open and user IDs come from the request.
func NewHTTPServer(cfg *config.Config, log zerolog.Logger, h Handlers, authService *service.AuthService) *HTTPServer {
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      NewRouter(cfg, log, h, authService),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		log:    log,
	}
}

// NewRouter builds the route tree.
func NewRouter(cfg *config.Config, log zerolog.Logger, h Handlers, authService *service.AuthService) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if authService != nil {
			r.Use(middleware.Auth(authService))
		}

		// Preferences
		r.Post("/save_preferences", h.Preference.Save)
		r.Get("/preferences/{user_id}", h.Preference.Get)

		// Sessions
		r.Post("/create_session", h.Session.Create)
		r.Get("/sessions/{user_id}", h.Session.List)
		r.Get("/session/{user_id}", h.Session.Latest)
		r.Get("/session/{user_id}/{session_id}", h.Session.Get)
		r.Post("/update_question_status", h.Session.UpdateQuestionStatus)
		r.Get("/next_question/{session_id}", h.Session.NextQuestion)

		// Audio
		r.Post("/upload_audio", h.Audio.Upload)
		r.Post("/speech_to_text", h.Conversation.SpeechToText)

		// Messages and conversation
		r.Post("/save_message", h.Conversation.SaveMessage)
		r.Get("/messages/{session_id}", h.Conversation.ListMessages)
		r.Post("/generate_greeting", h.Conversation.Greeting)
		r.Post("/conversational_response", h.Conversation.Respond)

		// Pronunciation
		r.Post("/analyze_pronunciation", h.Pronunciation.Analyze)
		r.Post("/save_pronunciation_analysis", h.Pronunciation.Save)
		r.Get("/pronunciation_analyses/{user_id}", h.Pronunciation.List)
		r.Get("/latest_pronunciation_analysis/{user_id}", h.Pronunciation.Latest)
	})

	return r
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
