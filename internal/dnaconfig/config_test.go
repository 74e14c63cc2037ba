package dnaconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// 테스트용 YAML 경로
	path := "../../configs/dna.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 기본 검증
	if cfg.Meta.ModelID != "customer_dna_v2" {
		t.Errorf("expected model_id=customer_dna_v2, got %s", cfg.Meta.ModelID)
	}

	if !cfg.Population.UsePopulationFallback {
		t.Error("expected use_population_fallback=true")
	}

	if cfg.CLV.HorizonDays != 365 {
		t.Errorf("expected horizon_days=365, got %v", cfg.CLV.HorizonDays)
	}

	// 해시 생성
	hash, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(hash))
	}

	// 동일 설정 → 동일 해시
	hash2, _ := Hash(cfg)
	if hash != hash2 {
		t.Error("hash not deterministic")
	}

	t.Logf("config hash: %s", hash)
	t.Logf("yaml size: %d bytes", len(yamlData))
}

func TestLoadUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dna.yaml")

	yaml := `
meta:
  model_id: test
  version: "1.0.0"
population:
  use_population_fallback: true
  fallback_stat: median
  default_cycle_days: 30
  tpyo_field: oops
nes:
  established_max_cycles: 1.0
  sleeping_tiers: [2.0, 3.0]
churn:
  default_nrec: 0.5
  min_sigma_days: 1.0
  active_threshold: 0.5
clv:
  horizon_days: 365
  frequency_weight: 0.25
loyalty:
  rules:
    - tier: Silver
      min_frequency: 2
      nes_statuses: [E0]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	// KnownFields(true): 오타 필드는 즉시 실패해야 함
	if _, _, err := Load(path); err == nil {
		t.Error("expected error for unknown field, got nil")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.Meta.ModelID != Default().Meta.ModelID {
		t.Errorf("expected default config, got model_id=%s", cfg.Meta.ModelID)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() must validate: %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "missing model id",
			mutate: func(c *Config) { c.Meta.ModelID = "" },
		},
		{
			name:   "bad fallback stat",
			mutate: func(c *Config) { c.Population.FallbackStat = "mode" },
		},
		{
			name:   "zero default cycle",
			mutate: func(c *Config) { c.Population.DefaultCycleDays = 0 },
		},
		{
			name:   "zero established max",
			mutate: func(c *Config) { c.NES.EstablishedMaxCycles = 0 },
		},
		{
			name:   "empty sleeping tiers",
			mutate: func(c *Config) { c.NES.SleepingTiers = nil },
		},
		{
			name:   "non-increasing sleeping tiers",
			mutate: func(c *Config) { c.NES.SleepingTiers = []float64{3.0, 2.0} },
		},
		{
			name:   "sleeping tier below established",
			mutate: func(c *Config) { c.NES.SleepingTiers = []float64{0.5, 2.0} },
		},
		{
			name:   "nrec out of range",
			mutate: func(c *Config) { c.Churn.DefaultNRec = 1.5 },
		},
		{
			name:   "zero min sigma",
			mutate: func(c *Config) { c.Churn.MinSigmaDays = 0 },
		},
		{
			name:   "threshold at one",
			mutate: func(c *Config) { c.Churn.ActiveThreshold = 1.0 },
		},
		{
			name:   "zero horizon",
			mutate: func(c *Config) { c.CLV.HorizonDays = 0 },
		},
		{
			name:   "negative frequency weight",
			mutate: func(c *Config) { c.CLV.FrequencyWeight = -0.1 },
		},
		{
			name:   "no loyalty rules",
			mutate: func(c *Config) { c.Loyalty.Rules = nil },
		},
		{
			name: "unknown nes status in rule",
			mutate: func(c *Config) {
				c.Loyalty.Rules = []LoyaltyRule{{Tier: "Gold", MinFrequency: 2, NESStatuses: []string{"E9"}}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
