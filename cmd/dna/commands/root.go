package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dna",
	Short: "Customer DNA - 고객 행동 분석 엔진",
	Long: `Customer DNA Unified CLI

거래 이력으로부터 고객 프로파일(RFM, NES, 이탈 확률, CLV)을 계산하는
배치 분석 시스템.

Usage:
  go run ./cmd/dna [command]

Examples:
  go run ./cmd/dna analyze --scopes amz_001,amz_002
  go run ./cmd/dna api
  go run ./cmd/dna test-db
  go run ./cmd/dna test-logger`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
