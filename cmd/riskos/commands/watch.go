package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rohan1090/market-risk-os/internal/audit"
	"github.com/rohan1090/market-risk-os/internal/scheduler"
	"github.com/rohan1090/market-risk-os/internal/scheduler/jobs"
	"github.com/rohan1090/market-risk-os/pkg/database"
	"github.com/rohan1090/market-risk-os/pkg/logger"
	"github.com/rohan1090/market-risk-os/pkg/redis"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the evaluation loop on a schedule",
	Long: `Evaluates every watchlist symbol on a cron schedule.

The watchlist and schedule come from WATCHLIST and WATCH_SCHEDULE and
can be overridden with flags. Schedules use six fields (with seconds)
or descriptors like @hourly. With AUDIT_ENABLED=true every sweep is
persisted to Postgres.

Example:
  go run ./cmd/riskos watch
  go run ./cmd/riskos watch --symbols SPX,NDX --every "0 */5 * * * *"
  go run ./cmd/riskos watch --symbols SPX --every @hourly`,
	RunE: runWatch,
}

var (
	watchSymbols string
	watchEvery   string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchSymbols, "symbols", "", "comma-separated watchlist (default: WATCHLIST)")
	watchCmd.Flags().StringVar(&watchEvery, "every", "", "cron schedule with seconds (default: WATCH_SCHEDULE)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	// 1. Load config and resolve overrides
	cfg, err := initConfig()
	if err != nil {
		return err
	}

	symbols := cfg.Scheduler.Watchlist
	if watchSymbols != "" {
		symbols = splitSymbols(watchSymbols)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("empty watchlist (set WATCHLIST or pass --symbols)")
	}

	schedule := cfg.Scheduler.Schedule
	if watchEvery != "" {
		schedule = watchEvery
	}

	// 2. Init logger
	log := logger.New(cfg)

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

	// 6. Schedule the sweep
	s := scheduler.New(log)
	if err := s.AddJob(jobs.NewWatchlistJob(orchestrator, symbols, schedule, log)); err != nil {
		return fmt.Errorf("schedule watchlist job: %w", err)
	}

	s.Start()

	fmt.Println("=== Watchlist Evaluation Loop ===")
	fmt.Println()
	fmt.Printf("📅 Schedule: %s\n", schedule)
	fmt.Printf("📈 Symbols:  %s\n", strings.Join(symbols, ", "))
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	// 7. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println()
	fmt.Println("⏳ Stopping scheduler...")
	s.Stop()

	// 8. Final run summary
	printJobStats(s.GetJobStats())

	fmt.Println("✅ Scheduler stopped")
	return nil
}

func printJobStats(stats map[string]scheduler.JobStats) {
	if len(stats) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("📊 Run summary:")
	for _, st := range stats {
		fmt.Printf("  • %s: %d runs, %d failed, success rate %.0f%%\n",
			st.JobName, st.TotalRuns, st.FailureCount, st.SuccessRate*100)
		if st.LastRun != nil {
			fmt.Printf("    last run: %s\n", st.LastRun.Format("2006-01-02 15:04:05"))
		}
	}
}

func splitSymbols(csv string) []string {
	var symbols []string
	for _, part := range strings.Split(csv, ",") {
		if s := strings.TrimSpace(part); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
