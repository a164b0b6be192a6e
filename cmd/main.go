package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satriahrh/santoryu/adapters/stt"
	"github.com/satriahrh/santoryu/adapters/tts"
	"github.com/satriahrh/santoryu/domain/repositories"
	"github.com/satriahrh/santoryu/internal/api"
	"github.com/satriahrh/santoryu/internal/auth"
	"github.com/satriahrh/santoryu/internal/config"
	"github.com/satriahrh/santoryu/internal/metrics"
	"github.com/satriahrh/santoryu/internal/websocket"
	"github.com/satriahrh/santoryu/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	// Initialize adapters
	speechToText, closeSTT, err := newSpeechToText(ctx, cfg.Speech, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech-to-text", zap.Error(err))
	}
	defer closeSTT()

	textToSpeech, err := newTextToSpeech(cfg.Synthesis, logger)
	if err != nil {
		logger.Fatal("Failed to initialize text-to-speech", zap.Error(err))
	}

	pool := usecase.DefaultPhrasePool()
	if cfg.PhraseFile != "" {
		pool, err = usecase.LoadPhrasePool(cfg.PhraseFile)
		if err != nil {
			logger.Fatal("Failed to load phrases", zap.Error(err))
		}
	}

	// Initialize usecase services
	replies := usecase.NewReplyService(pool, rand.New(rand.NewSource(time.Now().UnixNano())))
	conversationService := usecase.NewConversationService(
		speechToText,
		textToSpeech,
		replies,
		usecase.ConversationConfig{
			ChunkMode:       usecase.ChunkMode(cfg.Session.ChunkMode),
			ProviderTimeout: cfg.Session.ProviderTimeout,
			Audio: repositories.AudioConfig{
				SampleRate: cfg.Speech.SampleRate,
				Encoding:   cfg.Speech.Encoding,
				Language:   cfg.Speech.Language,
			},
		},
		m,
		logger,
	)

	// Initialize WebSocket hub with conversation service
	hub := websocket.NewHub(conversationService, replies, websocket.HubConfig{
		MaxSessionBytes: cfg.Session.MaxBytes,
		TurnTimeout:     cfg.Session.TurnTimeout,
	}, m, logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	routes := api.RouteConfig{
		StaticDir: cfg.Server.StaticDir,
		IndexFile: cfg.Server.IndexFile,
		Gatherer:  reg,
	}
	if cfg.Auth.Secret != "" {
		routes.Issuer, err = auth.NewIssuer(cfg.Auth.Secret, 0)
		if err != nil {
			logger.Fatal("Failed to initialize auth", zap.Error(err))
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, hub, routes, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Server.Port),
		zap.String("sttProvider", cfg.Speech.Provider),
		zap.String("ttsProvider", cfg.Synthesis.Provider),
		zap.Bool("auth", routes.Issuer != nil))

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Server is shutting down...")

	// Hijacked WebSocket connections are not tracked by the HTTP server
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Env == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func newSpeechToText(ctx context.Context, cfg config.SpeechConfig, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	switch cfg.Provider {
	case "mock":
		return stt.NewMockSpeechToText(logger), func() {}, nil
	case "gemini":
		gemini, err := stt.NewGeminiSpeechToText(ctx, stt.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return gemini, func() {}, nil
	default:
		google, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			return nil, nil, err
		}
		return google, func() {
			if err := google.Close(); err != nil {
				logger.Warn("Failed to close speech client", zap.Error(err))
			}
		}, nil
	}
}

func newTextToSpeech(cfg config.SynthesisConfig, logger *zap.Logger) (repositories.TextToSpeech, error) {
	if cfg.Provider == "mock" {
		return tts.NewMockTextToSpeech(logger), nil
	}
	elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       cfg.APIKey,
		APIBaseURL:   cfg.APIBaseURL,
		ModelID:      cfg.ModelID,
		OutputFormat: cfg.OutputFormat,
		Stability:    cfg.Stability,
		Clarity:      cfg.Clarity,
	}, logger)
	if err != nil {
		return nil, err
	}
	return elevenLabs, nil
}
