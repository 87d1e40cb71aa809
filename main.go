package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appcfg "brainrot-pipeline/config"
	"brainrot-pipeline/images"
	"brainrot-pipeline/pipeline"
	"brainrot-pipeline/scheduler"
	"brainrot-pipeline/script"
	"brainrot-pipeline/server"
	"brainrot-pipeline/store"
	"brainrot-pipeline/upload"
	"brainrot-pipeline/video"
	"brainrot-pipeline/voice"
)

func main() {
	// Load .env for local dev; production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := appcfg.Load(os.Getenv("BRAINROT_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	orch := pipeline.New(
		st,
		script.New("", cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.Model),
		images.New("", cfg.Providers.HuggingFace.APIKey, cfg.Providers.HuggingFace.Models),
		voice.New("", "", cfg.Providers.ElevenLabs.APIKey),
		video.NewFFmpeg(),
		upload.New(upload.Credentials{
			ClientID:     cfg.Providers.YouTube.ClientID,
			ClientSecret: cfg.Providers.YouTube.ClientSecret,
			RefreshToken: cfg.Providers.YouTube.RefreshToken,
		}),
	)

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(orch)
	if err := sched.Start(rootCtx, cfg.Schedule.Cron); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	svc := &server.Service{
		Store:      st,
		Runner:     orch,
		CronSecret: cfg.Server.CronSecret,
	}
	httpSrv := server.NewHTTPServer(svc, cfg.Server.Address)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🎬 brainrot pipeline listening on %s", cfg.Server.Address)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Println("✅ server stopped")
}
