package dnaconfig

import "fmt"

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ModelID == "" {
		return ValidationError{"meta.model_id", "required"}
	}

	// === Population ===
	switch cfg.Population.FallbackStat {
	case "median", "mean":
	default:
		return ValidationError{"population.fallback_stat", "must be 'median' or 'mean'"}
	}
	if cfg.Population.DefaultCycleDays <= 0 {
		return ValidationError{"population.default_cycle_days", "must be > 0"}
	}

	// === NES ===
	if cfg.NES.EstablishedMaxCycles <= 0 {
		return ValidationError{"nes.established_max_cycles", "must be > 0"}
	}
	if len(cfg.NES.SleepingTiers) != 2 {
		// S1/S2 상한 두 개 (S3는 상한 없음) — 5단계 분할이 총망라되도록 고정
		return ValidationError{"nes.sleeping_tiers", "exactly two tier boundaries required (S1, S2 upper bounds)"}
	}
	prev := cfg.NES.EstablishedMaxCycles
	for i, b := range cfg.NES.SleepingTiers {
		if b <= prev {
			return ValidationError{
				Field:   "nes.sleeping_tiers",
				Message: fmt.Sprintf("boundary %d (%.2f) must exceed previous (%.2f)", i, b, prev),
			}
		}
		prev = b
	}

	// === Churn ===
	if cfg.Churn.DefaultNRec < 0 || cfg.Churn.DefaultNRec > 1 {
		return ValidationError{"churn.default_nrec", "must be in [0, 1]"}
	}
	if cfg.Churn.MinSigmaDays <= 0 {
		return ValidationError{"churn.min_sigma_days", "must be > 0"}
	}
	if cfg.Churn.ActiveThreshold <= 0 || cfg.Churn.ActiveThreshold >= 1 {
		return ValidationError{"churn.active_threshold", "must be in (0, 1)"}
	}

	// === CLV ===
	if cfg.CLV.HorizonDays <= 0 {
		return ValidationError{"clv.horizon_days", "must be > 0"}
	}
	if cfg.CLV.FrequencyWeight < 0 {
		return ValidationError{"clv.frequency_weight", "must be >= 0"}
	}

	// === Loyalty ===
	if len(cfg.Loyalty.Rules) == 0 {
		return ValidationError{"loyalty.rules", "at least one rule required"}
	}
	validNES := map[string]bool{"N": true, "E0": true, "S1": true, "S2": true, "S3": true}
	for i, rule := range cfg.Loyalty.Rules {
		if rule.Tier == "" {
			return ValidationError{
				Field:   "loyalty.rules",
				Message: fmt.Sprintf("rule %d: tier is required", i),
			}
		}
		if rule.MinFrequency < 1 {
			return ValidationError{
				Field:   "loyalty.rules",
				Message: fmt.Sprintf("rule %d: min_frequency must be >= 1", i),
			}
		}
		for _, s := range rule.NESStatuses {
			if !validNES[s] {
				return ValidationError{
					Field:   "loyalty.rules",
					Message: fmt.Sprintf("rule %d: unknown nes_status %q", i, s),
				}
			}
		}
	}

	return nil
}
