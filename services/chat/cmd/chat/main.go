package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"healthchat/internal/util"
	"healthchat/pkg/ai"
	"healthchat/pkg/store"
	"healthchat/services/chat/internal/app"
	"healthchat/services/chat/internal/config"
	"healthchat/services/chat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		util.Fatal("failed to open store", "driver", cfg.StoreDriver, "err", err)
	}
	defer stores.Close()

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		util.Fatal("failed to parse session ttl", "err", err)
	}
	sessions, err := store.NewJWTSessionIssuer(cfg.JWTSecret, store.JWTOptions{TTL: sessionTTL})
	if err != nil {
		util.Fatal("failed to init session issuer", "err", err)
	}

	generationTimeout, err := config.ParseGenerationTimeout(cfg.GenerationTimeout)
	if err != nil {
		util.Fatal("failed to parse generation timeout", "err", err)
	}
	var generator ai.TextGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, ai.WithBaseURL(cfg.GeminiBaseURL))
		if err != nil {
			util.Fatal("failed to init gemini client", "err", err)
		}
		generator = ai.NewGeminiGenerator(gemini, cfg.GeminiModel)
	} else {
		logger.Warn("GEMINI_API_KEY not set; chat replies will use the fallback message")
	}

	appCore, err := app.New(app.Config{
		Users:             stores.users,
		History:           stores.history,
		Sessions:          sessions,
		Generator:         generator,
		GenerationTimeout: generationTimeout,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer := server.New(server.Config{
		App:         appCore,
		CORSOrigins: cfg.CORSOrigins,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("chat server listening",
			"addr", addr,
			"store", stores.describe,
			"gemini_model", cfg.GeminiModel,
			"gemini_key_configured", cfg.GeminiAPIKey != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("chat server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		stores.Close()
		os.Exit(1)
	}
}
