package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyowon/folio/internal/api"
	"github.com/hyowon/folio/internal/api/handlers"
	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/internal/external/finnhub"
	"github.com/hyowon/folio/internal/prefs"
	"github.com/hyowon/folio/internal/prices"
	"github.com/hyowon/folio/internal/scheduler"
	"github.com/hyowon/folio/internal/scheduler/jobs"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio API server",
	Long: `Starts the JSON API server.

On startup the newest backup in the backup directory is restored
best-effort; if none is readable the server starts with an empty store.

Example:
  go run ./cmd/folio serve
  go run ./cmd/folio serve --port 8080`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "override the configured port")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing folio")

	// 3. Create the store and restore the newest backup, best-effort
	st := store.New()
	manager, err := backup.New(cfg.BackupDir, st, log)
	if err != nil {
		return fmt.Errorf("init backup dir: %w", err)
	}
	manager.LoadLatest()
	if len(st.Names()) == 0 {
		if err := st.Add(cfg.DefaultPortfolio); err == nil {
			log.WithField("portfolio", cfg.DefaultPortfolio).Info("Created initial portfolio")
		}
	}

	// 4. Quote provider and price service
	quoter := finnhub.New(cfg, log)
	priceSvc := prices.NewService(quoter, cfg, log)

	// 5. Summary order preference
	order := prefs.NewSummaryOrder(cfg.SummaryOrderPath)

	// 6. Router and server
	router := api.NewRouter(api.Handlers{
		Portfolio: handlers.NewPortfolioHandler(st, priceSvc, log),
		Summary:   handlers.NewSummaryHandler(st, priceSvc, order, log),
		Backup:    handlers.NewBackupHandler(manager, cfg.MaxUploadBytes, log),
		Transfer:  handlers.NewTransferHandler(st, cfg.MaxUploadBytes, log),
	}, log)
	server := api.New(cfg, log, router)

	// 7. Scheduled backups, when configured
	var sched *scheduler.Scheduler
	if cfg.BackupSchedule != "" {
		sched = scheduler.New(log)
		if err := sched.AddJob(jobs.NewBackupJob(manager, cfg.BackupSchedule, log)); err != nil {
			return fmt.Errorf("schedule backups: %w", err)
		}
		sched.Start()
	}

	// 8. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()
	fmt.Printf("folio running on http://localhost:%s\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	if sched != nil {
		sched.Stop()
	}

	// Final backup so a restart picks up where we left off
	if _, err := manager.Create(); err != nil {
		log.WithError(err).Warn("Shutdown backup failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
