package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiki830621/customer-dna/internal/api"
	"github.com/kiki830621/customer-dna/internal/api/handlers"
	"github.com/kiki830621/customer-dna/internal/store"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/database"
	"github.com/kiki830621/customer-dna/pkg/logger"
	"github.com/kiki830621/customer-dna/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 최신 런의 고객 프로파일 조회 제공
- 런 메타데이터 조회 제공
- 런 이벤트 websocket 피드 제공

Endpoints:
  GET  /health                      - Health check
  GET  /api/profiles                - 프로파일 목록 (scope/segment/status 필터)
  GET  /api/profiles/{customer_id}  - 고객별 프로파일
  GET  /api/runs/latest             - 최근 성공 런
  GET  /api/runs/{run_id}           - 런 상세
  GET  /api/ws/runs                 - 런 이벤트 피드 (websocket)

Example:
  go run ./cmd/dna api
  go run ./cmd/dna api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Customer DNA API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	log.Info("Connected to database")

	// 4. Connect to Redis (optional; cache degrades to pass-through)
	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient, "dna")

	// 5. Create repositories
	profileRepo := store.NewProfileRepository(db.Pool)

	// 6. Create handlers and the run event hub
	profileHandler := handlers.NewProfileHandler(profileRepo, cache, cfg.DNA.CacheTTL, log)
	runHandler := handlers.NewRunHandler(profileRepo, log)
	hub := api.NewHub(log)

	// 7. Create router and server
	router := api.NewRouter(profileHandler, runHandler, hub, log)
	server := api.New(cfg, log, router)

	// 8. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/profiles")
	fmt.Println("  GET  /api/profiles/{customer_id}")
	fmt.Println("  GET  /api/runs/latest")
	fmt.Println("  GET  /api/runs/{run_id}")
	fmt.Println("  GET  /api/ws/runs")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
