package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohan1090/market-risk-os/internal/api"
	"github.com/rohan1090/market-risk-os/internal/api/handlers"
	"github.com/rohan1090/market-risk-os/internal/audit"
	"github.com/rohan1090/market-risk-os/pkg/database"
	"github.com/rohan1090/market-risk-os/pkg/logger"
	"github.com/rohan1090/market-risk-os/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API server with the evaluation pipeline behind it.

With AUDIT_ENABLED=true every evaluation is persisted to Postgres and
GET /api/v1/gates/{symbol} serves the latest recorded gate. With
REDIS_ENABLED=true feature snapshots are cached between runs.

Example:
  go run ./cmd/riskos serve
  PORT=9000 go run ./cmd/riskos serve
  AUDIT_ENABLED=true DATABASE_URL=postgres://... go run ./cmd/riskos serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := initConfig()
	if err != nil {
		return err
	}

	// 2. Init logger
	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"env":  cfg.Env,
		"port": cfg.Port,
	}).Info("Starting Market Risk OS API")

	// 3. Audit trail (optional)
	var auditRepo *audit.Repository
	if cfg.Audit.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		auditRepo = audit.NewRepository(db.Pool)
		if err := auditRepo.EnsureSchema(cmd.Context()); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		log.Info("Audit trail enabled")
	}

	// 4. Feature cache and distributed throttling (optional)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		client, err := redis.New(cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()

		redisClient = client
		log.Info("Redis cache enabled")
	}

	// 5. Build pipeline
	orchestrator, err := buildOrchestrator(cfg, log, redisClient)
	if err != nil {
		return err
	}
	if cfg.Audit.Enabled {
		orchestrator = orchestrator.WithRecorder(auditRepo)
	}

	// 6. Wire API
	// gates stays a nil interface when audit is off; the handler then
	// answers 404 instead of querying a store that does not exist
	var gates handlers.GateReader
	if cfg.Audit.Enabled {
		gates = auditRepo
	}

	hub := api.NewHub(log)
	pipelineHandler := handlers.NewPipelineHandler(orchestrator, gates, hub, log)
	router := api.NewRouter(pipelineHandler, hub, log)
	server := api.New(cfg, log, router)

	// 7. Start server in background
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Error("Server stopped unexpectedly")
		}
	}()

	fmt.Println("=== Market Risk OS API ===")
	fmt.Println()
	fmt.Printf("🚀 Listening on :%s\n", cfg.Port)
	fmt.Println()
	fmt.Println("📋 Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/v1/detectors")
	fmt.Println("  POST /api/v1/run/{symbol}")
	fmt.Println("  GET  /api/v1/gates/{symbol}")
	fmt.Println("  GET  /ws")
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	// 8. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println()
	fmt.Println("⏳ Shutting down...")

	// 9. Graceful shutdown
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	fmt.Println("✅ Server stopped")
	return nil
}
