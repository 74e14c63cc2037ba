package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/httputil"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "실행 중인 API 서버 상태 조회",
	Long: `실행 중인 API 서버에서 최근 분석 런 상태를 조회합니다.

표시 정보:
- 서버 health
- 최근 성공 런의 run_id / 고객 수 / 이탈 정확도
- 스코프별 성공/실패 현황

Example:
  go run ./cmd/dna status
  go run ./cmd/dna status --addr http://localhost:8090`,
	RunE: runStatus,
}

var (
	statusAddr string
)

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "API 서버 주소 (기본: http://localhost:$PORT)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Customer DNA Status ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	addr := statusAddr
	if addr == "" {
		addr = "http://localhost:" + cfg.Port
	}

	client := httputil.New(log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. Health check
	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := client.GetJSON(ctx, addr+"/health", &health); err != nil {
		return fmt.Errorf("❌ API server unreachable at %s: %w", addr, err)
	}
	fmt.Printf("✅ %s (%s)\n\n", health.Service, health.Status)

	// 2. Latest run
	var run contracts.AnalysisRun
	if err := client.GetJSON(ctx, addr+"/api/runs/latest", &run); err != nil {
		fmt.Println("No completed runs yet")
		return nil
	}

	fmt.Println("📊 Latest Run")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-18s %s\n", "Run ID:", run.RunID)
	fmt.Printf("%-18s %s\n", "Reference:", run.ReferenceTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("%-18s %s\n", "Finished:", run.FinishedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("%-18s %d\n", "Customers:", run.TotalCustomers)
	fmt.Printf("%-18s %d\n", "Skipped:", run.SkippedCustomers)
	fmt.Printf("%-18s %.1f%%\n", "Churn accuracy:", run.ChurnAccuracy*100)
	fmt.Println()

	fmt.Println("Scopes:")
	for _, scopeKey := range run.ScopeKeysSucceeded {
		fmt.Printf("  ✅ %s\n", scopeKey)
	}
	for scopeKey, reason := range run.ScopeKeysFailed {
		fmt.Printf("  ❌ %-12s %s\n", scopeKey, reason)
	}

	return nil
}
