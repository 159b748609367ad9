package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nimbus-server/internal/ai"
	"nimbus-server/internal/config"
	"nimbus-server/internal/httpapi"
	"nimbus-server/internal/modules/chatbot"
	"nimbus-server/internal/modules/stations"
	"nimbus-server/internal/session"
	"nimbus-server/internal/store"
)

func Run(ctx context.Context, cfg config.Config, version string) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"csvPath", cfg.CSVPath,
		"sessionDBPath", cfg.SessionDBPath,
		"corsOrigins", cfg.CORSOrigins,
		"geminiModel", cfg.GeminiModel,
		"geminiConfigured", cfg.GeminiAPIKey != "",
	)

	st := store.New(cfg.CSVPath)
	if err := st.Load(); err != nil {
		return err
	}

	sessions, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("session db close", "error", closeErr)
		}
	}()

	var classifier ai.Classifier
	var completer ai.Completer
	if cfg.GeminiAPIKey != "" {
		client := ai.NewGeminiClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiProModel)
		classifier, completer = client, client
	} else {
		slog.Warn("GEMINI_API_KEY not set, AI answers disabled")
	}

	root, api := httpapi.NewRouter(version, sessions)
	stations.RegisterFeature(api, st)
	chatbot.RegisterFeature(api, st, sessions, classifier, completer)

	srv := httpapi.NewServer(cfg, root)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
