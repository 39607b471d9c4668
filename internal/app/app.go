// Package app wires the pieces every front end shares: logging, the HTTP
// client, the Gemini service and the studio core.
package app

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	"temudesign/internal/config"
	"temudesign/internal/gemini"
	"temudesign/internal/httpclient"
	"temudesign/internal/studio"
)

type Studio struct {
	HTTPClient   *http.Client
	Service      *gemini.Service
	Orchestrator *studio.Orchestrator
	Gate         *studio.Gate
}

// NewStudio builds the generation stack from cfg.
func NewStudio(cfg config.Config, logger *slog.Logger) Studio {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	client := gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	svc := gemini.NewService(gemini.ServiceOptions{
		Client:            client,
		TextModel:         cfg.GeminiTextModel,
		ImageModel:        cfg.GeminiImageModel,
		PremiumImageModel: cfg.GeminiPremiumImageModel,
		MaxConcurrent:     cfg.MaxConcurrent,
		Logger:            logger,
	})

	validator := gemini.NewValidator(gemini.ValidatorOptions{
		Model:      cfg.GeminiValidationModel,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	return Studio{
		HTTPClient: httpClient,
		Service:    svc,
		Orchestrator: studio.NewOrchestrator(studio.Options{
			Service:        svc,
			Logger:         logger,
			PhaseHintDelay: cfg.PhaseHintDelay,
		}),
		Gate: studio.NewGate(studio.GateOptions{
			Validator: validator,
			Logger:    logger,
		}),
	}
}

// NewLogger returns the JSON logger used by the servers. w defaults to
// stdout.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(cfg.LogLevel),
	}))
}

func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
