package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/contractiq/contract-ocr-service/api"
	"github.com/contractiq/contract-ocr-service/internal/auth"
	"github.com/contractiq/contract-ocr-service/internal/db"
	"github.com/contractiq/contract-ocr-service/internal/models"
	"github.com/contractiq/contract-ocr-service/internal/storage"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	setupLogging()

	auth.Init()
	log.Info().Msg("jwt authentication initialized")

	// the extraction pipeline works without persistence, so database and
	// storage failures only disable their features
	if err := db.Init(); err != nil {
		log.Warn().Err(err).Msg("database not available, running in extract-only mode")
	} else {
		defer db.Close()
		log.Info().Msg("database connection pool initialized")
	}

	if err := storage.Init(); err != nil {
		log.Warn().Err(err).Msg("document storage not available, uploads will not be archived")
	} else {
		log.Info().Str("bucket", storage.BucketName).Msg("document storage initialized")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
	}

	handler := api.NewHandler(config)
	router := mux.NewRouter()
	handler.SetupRoutes(router)

	// every route except /health and /api/login requires a token
	protected := auth.JWTMiddleware(router)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Info().
		Str("addr", addr).
		Str("version", api.Version).
		Str("ocrLanguage", config.OCR.Language).
		Int("pdfDpi", config.PDF.DPI).
		Bool("aiFallback", config.Extraction.AIFallback).
		Str("aiProvider", config.AI.DefaultProvider).
		Bool("database", db.Pool != nil).
		Bool("storage", storage.Client != nil).
		Msg("starting contract ocr service")

	log.Info().Msg("endpoints:")
	log.Info().Msgf("  POST   /api/login                    - Authenticate")
	log.Info().Msgf("  POST   /api/extract-contract         - Extract a contract PDF (JWT)")
	log.Info().Msgf("  GET    /api/contracts                - List contracts (JWT)")
	log.Info().Msgf("  GET    /api/contract/{id}            - Get one contract (JWT)")
	log.Info().Msgf("  PUT    /api/contract/{id}            - Correct contract fields (JWT)")
	log.Info().Msgf("  DELETE /api/contract/{id}            - Delete a contract (JWT)")
	log.Info().Msgf("  POST   /api/contract/{id}/reprocess  - Re-run extraction (JWT)")
	log.Info().Msgf("  GET    /api/contract/{id}/document   - Download archived PDF (JWT)")
	log.Info().Msgf("  GET    /api/stats                    - Monthly stats (JWT)")
	log.Info().Msgf("  GET    /health                       - Health check")

	server := &http.Server{
		Addr:         addr,
		Handler:      protected,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && l != zerolog.NoLevel {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func loadConfig(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}

	if config.Port == 0 {
		config.Port = 8080
	}

	return &config, nil
}
