package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/updateme/updateme/handler"
)

func init() {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	requiredEnv := []string{
		"SLACK_BOT_TOKEN",
		"SLACK_APP_TOKEN",
	}
	for _, env := range requiredEnv {
		if os.Getenv(env) == "" {
			slog.Error("required environment variable not set", slog.String("env", env))
			os.Exit(1)
		}
	}
}

func main() {
	h, err := handler.NewHandler()
	if err != nil {
		slog.Error("NewHandler failed", slog.Any("err", err))
		os.Exit(1)
	}

	// weekly email digest
	h.StartDigestScheduler()

	slog.Info("Connecting to Slack in socket mode")
	if err := h.Handle(); err != nil {
		slog.Error("Socket mode connection failed", slog.Any("err", err))
		os.Exit(1)
	}
}
