// Package main is the entrypoint for the coachlink server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachlink/coachlink-go/internal/config"
	"github.com/coachlink/coachlink-go/internal/identity"
	"github.com/coachlink/coachlink-go/internal/invitation"
	"github.com/coachlink/coachlink-go/internal/notify"
	"github.com/coachlink/coachlink-go/internal/platform/logutil"
	"github.com/coachlink/coachlink-go/internal/server"
	"github.com/coachlink/coachlink-go/internal/store"

	// Register store drivers
	_ "github.com/coachlink/coachlink-go/internal/store/memory"
	_ "github.com/coachlink/coachlink-go/internal/store/postgres"
	_ "github.com/coachlink/coachlink-go/internal/store/sqlite"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	modeFlag := flag.String("mode", "", "Operating mode: production or dev (overrides config)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	externalOrigin := flag.String("external-origin", "", "External origin for invitation links (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory, sqlite, or postgres (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory for file-backed stores (overrides config)")
	mailDriver := flag.String("mail-driver", "", "Mail driver: sendgrid or capture (overrides config)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	// Bootstrap logger for config loading errors
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config with precedence: mode preset -> TOML file -> env -> CLI flags
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		ModeFlag:   *modeFlag,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:     listenAddr,
			ExternalOrigin: externalOrigin,
			StoreDriver:    storeDriver,
			DataDir:        dataDir,
			MailDriver:     mailDriver,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Log effective config with secrets redacted
	logger.Info("effective configuration", "config", cfg.Redacted())

	// Open the store through the driver registry
	var driverSettings map[string]any
	if raw, ok := cfg.Store.Drivers[cfg.Store.Driver]; ok {
		driverSettings, _ = raw.(map[string]any)
	}
	driver, err := store.New(&store.DriverConfig{
		Driver:   cfg.Store.Driver,
		DataDir:  cfg.Store.DataDir,
		Settings: driverSettings,
	})
	if err != nil {
		logger.Error("failed to create store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if err := driver.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name())

	// Outbound mail
	var notifier notify.Notifier
	switch cfg.Mail.Driver {
	case "sendgrid":
		mailLog := logutil.Component(logger, "mail")
		client := notify.NewSendGridClient(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, mailLog)
		notifier = notify.NewMailer(client, cfg.Mail.FromAddress, cfg.ExternalOrigin, mailLog)
	default:
		logger.Warn("mail capture mode active, no email will be delivered")
		notifier = &notify.CaptureNotifier{}
	}

	// Invitation lifecycle components
	inviteLog := logutil.Component(logger, "invitation")
	inviteService := invitation.NewService(
		driver.Invitations(), driver.Coaches(), driver.Accounts(), notifier, nil, inviteLog)
	validator := invitation.NewValidator(
		driver.Invitations(), driver.Coaches(), driver.Accounts(), nil, inviteLog)
	establisher := invitation.NewEstablisher(
		driver.Invitations(), driver.Relationships(), driver.Coaches(), driver.Athletes(),
		driver.Accounts(), notifier, nil, inviteLog)

	// Optional platform bearer token verification
	var bearer *identity.BearerVerifier
	if cfg.Auth.JWTSecret != "" {
		bearer = identity.NewBearerVerifier(cfg.Auth.JWTSecret)
		logger.Info("bearer token verification enabled")
	}

	deps := &server.Deps{
		Accounts:      driver.Accounts(),
		Sessions:      driver.Sessions(),
		Auth:          identity.NewPasswordAuth(),
		Coaches:       driver.Coaches(),
		Athletes:      driver.Athletes(),
		InviteService: inviteService,
		Validator:     validator,
		Establisher:   establisher,
		Bearer:        bearer,
	}

	srv, err := server.New(cfg, logger, deps)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
