package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Dosada05/uniplay/config"
	"github.com/Dosada05/uniplay/handlers"
	"github.com/Dosada05/uniplay/metrics"
	"github.com/Dosada05/uniplay/middleware"
	"github.com/Dosada05/uniplay/prediction"
	"github.com/Dosada05/uniplay/realtime"
	"github.com/Dosada05/uniplay/routes"
	"github.com/Dosada05/uniplay/services"
	"github.com/Dosada05/uniplay/storage"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("storage", cfg.StorageDriver))

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	recorder := metrics.NewRecorder()

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := realtime.NewHub(recorder, logger)
	if cfg.RealtimePGRelay {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			stopHub()
			return fmt.Errorf("failed to create relay pool: %w", err)
		}
		defer pool.Close()
		relay := realtime.NewPGRelay(pool, cfg.DatabaseURL, hub, logger)
		hub.SetPublisher(relay)
		go relay.Run(hubCtx)
		logger.Info("live relay enabled", slog.String("channel", realtime.RelayChannel))
	}
	defer stopHub()
	go hub.Run(hubCtx)
	logger.Info("websocket hub started")

	var uploader storage.FileUploader
	if cfg.R2.Enabled() {
		uploader, err = storage.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2.BucketName))
	}

	var external prediction.Predictor
	if ext := prediction.NewExternal(cfg.PredictorCommand, cfg.PredictorTimeout); ext != nil {
		external = ext
	}
	predictor := prediction.NewPredictor(external, logger)

	liveService := services.NewLiveMatchService(st.tx, st.live, st.fixtures, st.teams, hub, recorder, logger, cfg.DefaultTotalOvers)
	scheduleService := services.NewScheduleService(st.tx, st.events, st.fixtures, st.teams, recorder, logger, cfg.ScheduleLocation)
	autoPlayService := services.NewAutoPlayService(st.autoPlays, st.fixtures, st.live, liveService,
		uploader, hub, recorder, logger, cfg.AutoPlayBaseInterval)
	defer autoPlayService.Shutdown()
	logger.Info("services initialized")

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Logger:         logger,
		Metrics:        recorder.Handler(),
	}, middleware.NewAuthenticator(cfg.JWTSecretKey), routes.Handlers{
		LiveMatch: handlers.NewLiveMatchHandler(liveService, predictor),
		Schedule:  handlers.NewScheduleHandler(scheduleService),
		AutoPlay:  handlers.NewAutoPlayHandler(autoPlayService),
		WebSocket: handlers.NewWebSocketHandler(hub, liveService, cfg.CORSAllowedOrigins, logger),
		Health:    handlers.NewHealthHandler(st.ping),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}
