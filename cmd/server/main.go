package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/francoflex/francoflex_service/internal/client"
	"github.com/francoflex/francoflex_service/internal/config"
	"github.com/francoflex/francoflex_service/internal/handler/http"
	"github.com/francoflex/francoflex_service/internal/logger"
	"github.com/francoflex/francoflex_service/internal/repository"
	"github.com/francoflex/francoflex_service/internal/server"
	"github.com/francoflex/francoflex_service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("env", cfg.Environment).Msg("Starting francoflex_service")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM providers
	var openaiClient *client.OpenAIClient
	if cfg.OpenAIAPIKey != "" {
		openaiClient = client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ProviderTimeout).WithModel(cfg.OpenAIModel)
		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI client initialized")
	}

	var geminiClient *client.GeminiClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = client.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ProviderTimeout)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Gemini client")
			geminiClient = nil
		} else {
			geminiClient = geminiClient.WithModel(cfg.GeminiModel)
			log.Info().Str("model", cfg.GeminiModel).Msg("Gemini client initialized")
		}
	}

	aiService := service.NewAIService(openaiClient, geminiClient, cfg.LLMProvider)
	if !aiService.Configured() {
		log.Warn().Msg("No LLM provider configured, sentence generation will fail")
	}

	// Speech providers
	var scorer service.SpeechScorer
	if cfg.SpeechAceAPIKey != "" {
		scorer = client.NewSpeechAceClient(cfg.SpeechAceAPIKey, cfg.SpeechAceEndpoint, cfg.ProviderTimeout)
	} else {
		log.Warn().Msg("SPEECHACE_API_KEY not set, pronunciation scoring disabled")
	}

	var (
		tts         service.SpeechSynthesizer
		transcriber service.Transcriber
		voiceID     string
	)
	if cfg.ElevenLabsAPIKey != "" {
		elevenLabs := client.NewElevenLabsClient(cfg.ElevenLabsAPIKey, client.ElevenLabsOptions{
			BaseURL:  cfg.ElevenLabsBaseURL,
			VoiceID:  cfg.ElevenLabsVoiceID,
			TTSModel: cfg.ElevenLabsTTSModel,
			STTModel: cfg.ElevenLabsSTTModel,
			Timeout:  cfg.ProviderTimeout,
		})
		tts, transcriber, voiceID = elevenLabs, elevenLabs, elevenLabs.VoiceID()
	} else {
		log.Warn().Msg("ELEVENLABS_API_KEY not set, sentence audio disabled")
	}

	// Object storage
	store, closeStore := newObjectStore(ctx, cfg, log)
	defer closeStore()

	// Audio URL cache
	var (
		cache       service.AudioCache
		redisClient *client.RedisClient
	)
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client")
			redisClient = nil
		} else {
			cache = redisClient
			log.Info().Msg("Redis client initialized")
		}
	}

	// Persistence
	pingers := map[string]http.Pinger{}
	var postgresClient *client.PostgresClient
	if cfg.DatabaseURL != "" {
		postgresClient, err = client.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Postgres client")
		}
		pingers["postgres"] = postgresClient
		log.Info().Msg("Postgres client initialized")
	}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}

	var (
		prefRepo     repository.PreferenceRepository
		sessionRepo  repository.SessionRepository
		messageRepo  repository.MessageRepository
		analysisRepo repository.PronunciationAnalysisRepository
	)
	if postgresClient != nil {
		prefRepo = repository.NewPostgresPreferenceRepository(postgresClient)
		sessionRepo = repository.NewPostgresSessionRepository(postgresClient)
		messageRepo = repository.NewPostgresMessageRepository(postgresClient)
		analysisRepo = repository.NewPostgresPronunciationAnalysisRepository(postgresClient)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory repositories")
		prefRepo = repository.NewMemoryPreferenceRepository()
		sessionRepo = repository.NewMemorySessionRepository()
		messageRepo = repository.NewMemoryMessageRepository()
		analysisRepo = repository.NewMemoryPronunciationAnalysisRepository()
	}

	// Initialize services
	var llm service.ChatModel
	if aiService.Configured() {
		llm = aiService
	}
	downloader := client.NewAudioDownloader(cfg.ProviderTimeout, cfg.AudioHosts()...)
	audioService := service.NewAudioService(tts, store, cache, voiceID, cfg.AudioCacheTTL, log)
	preferenceService := service.NewPreferenceService(prefRepo)
	sessionService := service.NewSessionService(prefRepo, sessionRepo, llm, audioService, log)
	feedbackService := service.NewFeedbackService(llm, cfg.FeedbackTimeout, log)
	pronunciationService := service.NewPronunciationService(downloader, scorer, feedbackService, prefRepo, sessionRepo, analysisRepo, log)
	conversationService := service.NewConversationService(prefRepo, sessionService, messageRepo, llm, audioService, downloader, transcriber, log)

	var authService *service.AuthService
	if cfg.AuthEnabled() {
		authService = service.NewAuthService(cfg.JWTSecret)
	} else {
		log.Warn().Msg("AUTH_JWT_SECRET not set, API routes are unauthenticated")
	}

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(cfg, log, server.Handlers{
		Health:        http.NewHealthHandler(log, pingers),
		Preference:    http.NewPreferenceHandler(log, preferenceService),
		Session:       http.NewSessionHandler(log, sessionService),
		Audio:         http.NewAudioHandler(log, audioService),
		Conversation:  http.NewConversationHandler(log, conversationService),
		Pronunciation: http.NewPronunciationHandler(log, pronunciationService),
	}, authService)

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Msg("Servers started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down servers...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	}

	log.Info().Msg("Server stopped")
}

// newObjectStore builds the configured storage backend. The returned store is
// nil when the backend is not configured.
func newObjectStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.ObjectStore, func()) {
	noop := func() {}

	switch cfg.StorageBackend {
	case "gcs":
		if cfg.GCSBucketName == "" {
			log.Warn().Msg("GCS_BUCKET_NAME not set, skipping GCS initialization")
			return nil, noop
		}
		storageClient, err := client.NewStorageClient(ctx, cfg.GCSBucketName, cfg.GCSCredentialsFile, cfg.ProviderTimeout)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize GCS client")
			return nil, noop
		}
		log.Info().Str("bucket", cfg.GCSBucketName).Msg("GCS client initialized")
		return storageClient, storageClient.Close

	default:
		if !cfg.R2Configured() {
			log.Warn().Msg("Cloudflare configuration missing, skipping R2 initialization")
			return nil, noop
		}
		cloudflareClient, err := client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.CloudflarePublicURL,
			cfg.ProviderTimeout,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloudflare client")
			return nil, noop
		}
		log.Info().Str("bucket", cfg.CloudflareBucketName).Msg("Cloudflare R2 client initialized")
		return cloudflareClient, noop
	}
}
