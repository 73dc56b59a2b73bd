package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/providers/cloudinary"
	"server/internal/providers/design"
	"server/internal/providers/vision"
	"server/internal/storage"
	"server/internal/upload"
	"server/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	creds, err := credentials.FromConfig(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("credential seeding incomplete, affected providers stay disabled")
	}

	climate, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		// The climate hint is a nicety; a broken database only degrades the
		// fallback analysis wording.
		logger.Warn().Err(err).Msg("geoip database unavailable")
		climate = nil
	}

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize file store")
	}

	local := upload.NewLocalUploader(store, cfg.StorageBaseURL)
	cloudSet := creds.Cloudinary()
	mediaClient := cloudinary.NewClient(cloudinary.Options{
		CloudName:    cloudSet.CloudName,
		APIKey:       cloudSet.APIKey,
		APISecret:    cloudSet.APISecret,
		UploadPreset: cloudSet.UploadPreset,
		Logger:       &logger,
	})
	uploader := upload.NewCloudinaryUploader(mediaClient, local)

	visionClient := vision.NewClient(vision.Options{
		APIKey:  creds.VisionAPIKey(),
		BaseURL: cfg.APIBaseURL,
		Model:   cfg.VisionModel,
		Logger:  &logger,
	})
	designClient := design.NewClient(design.Options{
		APIKey:  creds.VisionAPIKey(),
		BaseURL: cfg.APIBaseURL,
		Model:   cfg.ImageModel,
		Logger:  &logger,
	})

	sessions := workflow.NewSessionStore(cfg.SessionTTL)

	app := &handlers.App{
		Config:   cfg,
		Log:      logger,
		Uploader: uploader,
		Local:    local,
		Store:    store,
		Vision:   visionClient,
		Design:   designClient,
		Climate:  climate,
		Sessions: sessions,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SessionTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.Sweep(); n > 0 {
					logger.Info().Int("evicted", n).Msg("swept idle workflow sessions")
				}
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
