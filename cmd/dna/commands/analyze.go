package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/internal/dna"
	"github.com/kiki830621/customer-dna/internal/dnaconfig"
	"github.com/kiki830621/customer-dna/internal/orchestrator"
	"github.com/kiki830621/customer-dna/internal/store"
	"github.com/kiki830621/customer-dna/pkg/config"
	"github.com/kiki830621/customer-dna/pkg/database"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "DNA 분석 1회 실행",
	Long: `설정된 스코프 전체(또는 --scopes로 지정한 스코프)에 대해
고객 DNA 분석을 1회 실행하고 결과를 저장합니다.

이 명령어는:
- analytics.cleansed_transactions에서 거래 로드
- 스코프별 병렬 분석 (RFM / NES / 이탈 확률 / CLV)
- 이탈 모델 백테스트 정확도 산출
- run_id 태깅 후 analytics.dna_profiles에 추가 저장

Example:
  go run ./cmd/dna analyze
  go run ./cmd/dna analyze --scopes amz_001,eby_002
  go run ./cmd/dna analyze --scopes all --ref-date 2026-08-01
  go run ./cmd/dna analyze --dry-run`,
	RunE: runAnalyze,
}

var (
	analyzeScopes  string
	analyzeRefDate string
	analyzeDryRun  bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeScopes, "scopes", "", "쉼표로 구분한 스코프 키 (기본: DNA_SCOPE_KEYS)")
	analyzeCmd.Flags().StringVar(&analyzeRefDate, "ref-date", "", "레퍼런스 날짜 YYYY-MM-DD (기본: 현재 시각)")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "저장 없이 분석만 실행")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Customer DNA Analysis ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load model parameters
	model, err := dnaconfig.LoadOrDefault(cfg.DNA.ModelConfigPath)
	if err != nil {
		return fmt.Errorf("load model config: %w", err)
	}

	modelLog := log.WithField("model_id", model.Meta.ModelID)
	if hash, err := dnaconfig.Hash(model); err == nil {
		modelLog = modelLog.WithField("config_hash", hash[:12])
	}
	modelLog.Info("Model parameters loaded")

	// 4. Resolve scopes and reference time
	scopeKeys := cfg.DNA.ScopeKeys
	if analyzeScopes != "" {
		scopeKeys = splitScopes(analyzeScopes)
	}

	reference := time.Time{}
	if analyzeRefDate != "" {
		reference, err = time.Parse("2006-01-02", analyzeRefDate)
		if err != nil {
			return fmt.Errorf("invalid --ref-date (want YYYY-MM-DD): %w", err)
		}
	}

	// 5. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 6. Wire the pipeline
	source := store.NewTransactionRepository(db.Pool)
	sink := store.NewProfileRepository(db.Pool)
	engine := dna.New(model, log)

	orch := orchestrator.New(source, engine, sink, nil, orchestrator.Options{
		MaxParallelScopes: cfg.DNA.MaxParallelScopes,
		ScopeTimeout:      cfg.DNA.ScopeTimeout,
	}, log)

	// 7. Run
	fmt.Printf("Scopes: %s\n", strings.Join(scopeKeys, ", "))
	if analyzeDryRun {
		fmt.Println("Mode:   dry-run (no persistence)")
	}
	fmt.Println()

	bundle, err := orch.Run(context.Background(), orchestrator.RunConfig{
		ScopeKeys:     scopeKeys,
		ReferenceTime: reference,
		DryRun:        analyzeDryRun,
	})
	if bundle != nil {
		printRunSummary(bundle)
	}
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}

	fmt.Println("\n✅ Analysis completed")
	return nil
}

func splitScopes(raw string) []string {
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}

func printRunSummary(bundle *contracts.ResultBundle) {
	run := bundle.Run

	fmt.Println("📊 Run Summary")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("%-18s %s\n", "Run ID:", run.RunID)
	fmt.Printf("%-18s %s\n", "Reference:", run.ReferenceTime.Format("2006-01-02 15:04:05"))
	fmt.Printf("%-18s %d\n", "Customers:", run.TotalCustomers)
	fmt.Printf("%-18s %d\n", "Skipped:", run.SkippedCustomers)
	fmt.Printf("%-18s %.1f%%\n", "Churn accuracy:", run.ChurnAccuracy*100)
	fmt.Printf("%-18s %v\n", "Duration:", run.Duration.Round(time.Millisecond))
	fmt.Println()

	for _, scope := range bundle.Profiles {
		fmt.Printf("  ✅ %-12s %6d customers  (accuracy %.1f%%, sample %d)\n",
			scope.ScopeKey, scope.CustomerCount, scope.ChurnAccuracy*100, scope.BacktestSample)
	}
	for scopeKey, reason := range run.ScopeKeysFailed {
		fmt.Printf("  ❌ %-12s %s\n", scopeKey, reason)
	}
}
