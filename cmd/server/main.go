package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/grmaxv/users_api/internal/config"
	"github.com/grmaxv/users_api/internal/httpserver"
	"github.com/grmaxv/users_api/internal/logging"
	"github.com/grmaxv/users_api/internal/mailer"
	"github.com/grmaxv/users_api/internal/middleware"
	"github.com/grmaxv/users_api/internal/mykafka"
	"github.com/grmaxv/users_api/internal/repo"
	"github.com/grmaxv/users_api/internal/service"
	"github.com/grmaxv/users_api/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(middleware.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaAddress)
	defer producer.Close()

	var notifier mailer.Notifier = mailer.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = &mailer.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			BaseURL:  cfg.ResetBaseURL,
		}
	}

	authRepo := repo.GormRepo{DB: db}
	svc := &service.AuthService{
		Repo: authRepo,
		Codec: tokens.NewCodec(tokens.Config{
			Secret: cfg.JWTSecret,
			TTL:    cfg.AccessTokenTTL,
			Leeway: cfg.TokenLeeway,
		}),
		Producer: producer,
		Mailer:   notifier,
		ResetTTL: cfg.ResetTokenTTL,
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:  &httpserver.AuthHTTP{Svc: svc},
		UsersHandler: &httpserver.UsersHTTP{Svc: svc},
		Auth:         middleware.NewTokenAuth(svc),
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if cfg.RevocationSweepInterval > 0 {
		go sweepRevoked(sweepCtx, authRepo, cfg.RevocationSweepInterval, logger)
	}

	go func() {
		if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}

// sweepRevoked periodically purges ledger entries whose token has passed its
// natural expiry. Correctness never depends on this running; it only keeps
// the ledger small.
func sweepRevoked(ctx context.Context, r repo.GormRepo, interval time.Duration, logger *slog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := r.PurgeExpired(ctx, time.Now())
			if err != nil {
				logger.Error("revocation_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("revocation_sweep", "purged", n)
			}
		}
	}
}
