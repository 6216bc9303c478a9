package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brannt/skypilot/api"
	"github.com/brannt/skypilot/internal/auth"
	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/internal/metrics"
	"github.com/brannt/skypilot/internal/orchestrator"
	"github.com/brannt/skypilot/pkg/config"
	"github.com/brannt/skypilot/pkg/database"
	"github.com/brannt/skypilot/pkg/database/queries"
	"github.com/brannt/skypilot/pkg/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	createUser := flag.String("create-user", "", "create an API user (username:password) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	if *createUser != "" {
		return createAPIUser(db, *createUser)
	}

	orch := orchestrator.New(cfg, db)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	if err := startActiveServices(orch, db); err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port)
	}

	retentionCtx, retentionCancel := context.WithCancel(context.Background())
	defer retentionCancel()
	go pruneRateSamples(retentionCtx, db)

	server := api.NewServer(cfg.API, cfg.WebSocket, db, orch)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		orch.Stop()
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown error: %v", err)
	}
	orch.Stop()

	logger.Info("Server stopped gracefully")
	return nil
}

// startActiveServices resumes pipelines for every service marked active in
// the database.
func startActiveServices(orch *orchestrator.Orchestrator, db *database.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serviceRepo := queries.NewServiceRepository(db.DB)
	services, err := serviceRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}

	for _, service := range services {
		if !service.IsActive() {
			continue
		}
		if err := orch.StartService(service); err != nil {
			logger.WithService(service.Name).Errorf("Failed to start pipeline: %v", err)
			continue
		}
	}

	logger.Infof("Resumed %d service pipelines", len(orch.ListRunningServices()))
	return nil
}

// pruneRateSamples deletes rate samples older than the retention window once
// an hour so the table does not grow unbounded.
func pruneRateSamples(ctx context.Context, db *database.DB) {
	const retention = 7 * 24 * time.Hour

	rateRepo := queries.NewRateSampleRepository(db.DB)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := rateRepo.Prune(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Errorf("Rate sample pruning failed: %v", err)
			} else if deleted > 0 {
				logger.Debugf("Pruned %d rate samples", deleted)
			}
		}
	}
}

func createAPIUser(db *database.DB, arg string) error {
	username, password, ok := strings.Cut(arg, ":")
	if !ok {
		return fmt.Errorf("-create-user expects username:password")
	}

	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userRepo := queries.NewUserRepository(db.DB)
	user, err := userRepo.Create(ctx, validation.SanitizeString(username), hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Infof("Created user %s (id=%d)", user.Username, user.ID)
	return nil
}
