package main

import (
	"os"

	"github.com/kiki830621/customer-dna/cmd/dna/commands"
)

// main is the entry point for the Customer DNA CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/dna [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
