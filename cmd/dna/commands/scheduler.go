package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kiki830621/customer-dna/internal/dna"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
	"github.com/kiki830621/customer-dna/internal/orchestrator"
	"github.com/kiki830621/customer-dna/internal/scheduler"
	"github.com/kiki830621/customer-dna/internal/scheduler/jobs"
	"github.com/kiki830621/customer-dna/internal/store"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/database"
	"github.com/kiki830621/customer-dna/pkg/logger"
	"github.com/kiki830621/customer-dna/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/dna scheduler start
  go run ./cmd/dna scheduler list
  go run ./cmd/dna scheduler run dna_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- dna_refresh: 매일 새벽 3시 (전체 스코프 DNA 재계산, DNA_REFRESH_SCHEDULE로 변경)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Customer DNA Scheduler ===")

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Println("Job started (running in background)")
	return nil
}

func initScheduler() (*scheduler.Scheduler, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load model parameters
	model, err := dnaconfig.LoadOrDefault(cfg.DNA.ModelConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis (cache invalidation after each refresh)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "dna")

	// 6. Wire the pipeline
	source := store.NewTransactionRepository(db.Pool)
	sink := store.NewProfileRepository(db.Pool)
	engine := dna.New(model, log)

	orch := orchestrator.New(source, engine, sink, nil, orchestrator.Options{
		MaxParallelScopes: cfg.DNA.MaxParallelScopes,
		ScopeTimeout:      cfg.DNA.ScopeTimeout,
	}, log)

	// 7. Create scheduler and register jobs
	sched := scheduler.New(log)

	if err := sched.AddJob(jobs.NewRefreshJob(orch, cache, cfg, log)); err != nil {
		return nil, fmt.Errorf("register refresh job: %w", err)
	}

	return sched, nil
}
