package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framewall/framewall-agent/internal/api"
	"github.com/framewall/framewall-agent/internal/assets"
	"github.com/framewall/framewall-agent/internal/config"
	"github.com/framewall/framewall-agent/internal/db"
	"github.com/framewall/framewall-agent/internal/encoder"
	"github.com/framewall/framewall-agent/internal/export"
	"github.com/framewall/framewall-agent/internal/logging"
	"github.com/framewall/framewall-agent/internal/media"
	"github.com/framewall/framewall-agent/internal/playback"
	"github.com/framewall/framewall-agent/internal/render"
	"github.com/framewall/framewall-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MoviesDir(), 0755); err != nil {
		return fmt.Errorf("failed to create movies dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ScratchDir(), 0755); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting framewall agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	assetRepo := assets.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(assetRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(assetRepo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   FRAMEWALL AGENT v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	toolchain := media.Locate(cfg.FFmpegPath(), cfg.FFprobePath(), logger)
	doctor := media.NewCachedDoctor(toolchain, logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial encoder probe failed", "error", err)
	} else {
		logger.Info("encoder capabilities detected",
			"ffmpeg", caps.HasFFmpeg,
			"ffprobe", caps.HasFFprobe,
			"h264", caps.HasH264,
			"aac", caps.HasAAC,
		)
	}
	initCancel()

	var prober media.Prober
	if toolchain.HasFFprobe() {
		prober = media.NewProber(toolchain, logger)
	} else {
		logger.Warn("ffprobe not found, media metadata will come from the catalog only")
		prober = media.NewStubProber(logger)
	}

	var library assets.Library
	if cfg.LibraryURL() != "" {
		library = assets.NewHTTPLibrary(cfg.LibraryURL(), cfg.LibraryToken(), logger)
		logger.Info("remote library enabled", "base_url", cfg.LibraryURL())
	} else {
		library = assets.NewCatalogLibrary(assetRepo, assets.NewRasterCache(cfg.RasterCacheSize()), logger)
	}
	renderer := render.NewRenderer(cfg.RenderSize(), cfg.FrameRate(), logger)

	var writerFactory render.ClipWriterFactory
	if toolchain.HasFFmpeg() {
		writerFactory = render.NewFFmpegWriterFactory(toolchain, logger)
	} else {
		logger.Warn("ffmpeg not found, rendering clips as motion JPEG")
		writerFactory = render.NewMJPEGWriterFactory()
	}
	pool := render.NewPool(renderer, writerFactory, logger)

	classifier := encoder.NewClassifier(cfg.RecoverableSignatures())
	session := encoder.NewFFmpegSession(toolchain, cfg.RenderSize(), cfg.FrameRate(), cfg.ProgressPollInterval(), logger)
	primary := encoder.NewPrimary(session, classifier, cfg.EncodeAttempts(), cfg.EncodeBackoff(), logger)
	fallback := encoder.NewFallback(toolchain, cfg.RenderSize(), cfg.FrameRate(), logger)
	normalizer := encoder.NewNormalizer(toolchain, prober, cfg.FrameRate(), logger)

	exporter := export.NewExporter(
		export.Options{
			RenderSize:       cfg.RenderSize(),
			FrameRate:        cfg.FrameRate(),
			TitleCardSeconds: cfg.TitleCardSeconds(),
			StillClipSeconds: cfg.StillClipSeconds(),
			MinClipSeconds:   cfg.MinClipSeconds(),
			MaxTitleLength:   cfg.MaxTitleLength(),
			MoviesDir:        cfg.MoviesDir(),
			ScratchRoot:      cfg.ScratchDir(),
		},
		library,
		prober,
		pool,
		render.NewTextCompositor(logger),
		primary,
		fallback,
		normalizer,
		logger,
	)

	exportRepo := export.NewRepository(database.Conn())
	service := export.NewService(exportRepo, cfg.MaxTitleLength())
	runner := export.NewRunner(service, exportRepo, exporter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runner.Start(ctx)

	movies := playback.NewMovieServer(cfg.MoviesDir(), logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		Assets:        assetRepo,
		ExportService: service,
		Runner:        runner,
		Doctor:        doctor,
		Movies:        movies,
		Logger:        logger,
		StartTime:     startTime,
		DeviceID:      deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Runner: runner,
			Logger: logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo assets.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo assets.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
