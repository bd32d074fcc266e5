package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms/backend/internal/config"
	"lms/backend/internal/httpserver"
	"lms/backend/internal/infrastructure/mailer"
	"lms/backend/internal/infrastructure/objectstore"
	"lms/backend/internal/infrastructure/password"
	"lms/backend/internal/infrastructure/postgres"
	"lms/backend/internal/infrastructure/reset"
	"lms/backend/internal/infrastructure/token"
	authusecase "lms/backend/internal/usecase/auth"
	courseusecase "lms/backend/internal/usecase/course"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rootCtx := context.Background()
	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		log.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}

	store, err := objectstore.NewS3Store(rootCtx, objectstore.Config{
		Region:        cfg.S3Region,
		Endpoint:      cfg.S3Endpoint,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})
	if err != nil {
		log.Error("failed to initialise object storage", "error", err)
		os.Exit(1)
	}

	authService := authusecase.NewService(
		postgres.NewAccountRepository(db.Pool),
		token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer),
		password.NewBcryptHasher(cfg.BcryptCost),
		reset.NewManager(cfg.ResetTokenTTL),
		mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom),
		store,
		cfg.FrontendURL,
		log,
	)
	courseService := courseusecase.NewService(postgres.NewCourseRepository(db.Pool), store, log)

	server := httpserver.NewServer(cfg, authService, courseService, log)
	log.Info("HTTP server listening", "addr", server.Addr())

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info("HTTP server closed")
				return
			}
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	} else {
		log.Info("graceful shutdown completed")
	}
}
