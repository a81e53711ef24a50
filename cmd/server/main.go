package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pearltechai/ai-travel-assistant/internal/config"
	"github.com/pearltechai/ai-travel-assistant/internal/httpserver"
	"github.com/pearltechai/ai-travel-assistant/internal/provider"
	"github.com/pearltechai/ai-travel-assistant/internal/session"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := provider.NewClient(cfg.OpenAIKey)
	client.BaseURL = cfg.OpenAIBaseURL
	client.ChatModel = cfg.ChatModel
	client.SpeechModel = cfg.SpeechModel
	client.TranscribeModel = cfg.TranscribeModel
	client.CacheDir = cfg.CacheDir

	manager := session.NewManager(client, cfg.SpeechVoice, cfg.CacheDir)
	srv := httpserver.New(manager)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
	manager.CloseAll()
}
