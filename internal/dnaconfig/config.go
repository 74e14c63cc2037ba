package dnaconfig

// Config는 Customer DNA 엔진의 모델 파라미터 전체
// ⭐ SSOT: 모델 상수는 코드에 하드코딩하지 않고 이 YAML 설정에서만 읽는다
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Population Population `yaml:"population" json:"population"`
	NES        NES        `yaml:"nes" json:"nes"`
	Churn      Churn      `yaml:"churn" json:"churn"`
	CLV        CLV        `yaml:"clv" json:"clv"`
	Loyalty    Loyalty    `yaml:"loyalty" json:"loyalty"`
}

// Meta 메타 정보
type Meta struct {
	ModelID  string `yaml:"model_id" json:"model_id"`
	Version  string `yaml:"version" json:"version"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// Population 모집단 폴백 정책 (§ 개별 IPT 통계가 정의되지 않는 고객 처리)
type Population struct {
	// UsePopulationFallback toggles the population-median fallback for
	// customers with undefined individual IPT statistics
	UsePopulationFallback bool `yaml:"use_population_fallback" json:"use_population_fallback"`

	// FallbackStat: "median" 또는 "mean"
	FallbackStat string `yaml:"fallback_stat" json:"fallback_stat"`

	// DefaultCycleDays is the last-resort expected cycle when the population
	// itself has no repeat customers
	DefaultCycleDays float64 `yaml:"default_cycle_days" json:"default_cycle_days"`
}

// NES 라이프사이클 분류 임계값 (고객 자신의 기대 구매 주기 배수)
type NES struct {
	// EstablishedMaxCycles: ratio <= 이 값이면 E0
	EstablishedMaxCycles float64 `yaml:"established_max_cycles" json:"established_max_cycles"`

	// SleepingTiers: S1/S2 상한 (초과 시 S3), 오름차순
	SleepingTiers []float64 `yaml:"sleeping_tiers" json:"sleeping_tiers"`
}

// Churn 생존 확률 모델 파라미터
type Churn struct {
	// DefaultNRec is the still-alive estimate for single-purchase customers
	// (백테스트 근거가 없는 고객의 기본값)
	DefaultNRec float64 `yaml:"default_nrec" json:"default_nrec"`

	// MinSigmaDays floors the IPT spread to avoid a degenerate step function
	MinSigmaDays float64 `yaml:"min_sigma_days" json:"min_sigma_days"`

	// ActiveThreshold: p >= 이 값이면 "아직 살아있음"으로 판정 (백테스트용)
	ActiveThreshold float64 `yaml:"active_threshold" json:"active_threshold"`
}

// CLV projection 상수
type CLV struct {
	// HorizonDays is the fixed lookback horizon for the recency decay penalty
	HorizonDays float64 `yaml:"horizon_days" json:"horizon_days"`

	// FrequencyWeight scales the log-frequency loyalty multiplier
	FrequencyWeight float64 `yaml:"frequency_weight" json:"frequency_weight"`
}

// Loyalty (frequency, NES) → 티어 룰 테이블
type Loyalty struct {
	Rules []LoyaltyRule `yaml:"rules" json:"rules"`
}

// LoyaltyRule: 위에서부터 첫 매칭 룰 적용, 어느 것도 안 맞으면 Bronze
type LoyaltyRule struct {
	Tier         string   `yaml:"tier" json:"tier"`
	MinFrequency int      `yaml:"min_frequency" json:"min_frequency"`
	NESStatuses  []string `yaml:"nes_statuses" json:"nes_statuses"`
}

// Default returns the production parameter set
// configs/dna.yaml과 동일해야 하며, 테스트와 폴백에서 사용
func Default() *Config {
	return &Config{
		Meta: Meta{
			ModelID:  "customer_dna_v2",
			Version:  "2.0.0",
			Timezone: "Asia/Taipei",
		},
		Population: Population{
			UsePopulationFallback: true,
			FallbackStat:          "median",
			DefaultCycleDays:      30,
		},
		NES: NES{
			EstablishedMaxCycles: 1.0,
			SleepingTiers:        []float64{2.0, 3.0},
		},
		Churn: Churn{
			DefaultNRec:     0.5,
			MinSigmaDays:    1.0,
			ActiveThreshold: 0.5,
		},
		CLV: CLV{
			HorizonDays:     365,
			FrequencyWeight: 0.25,
		},
		Loyalty: Loyalty{
			Rules: []LoyaltyRule{
				{Tier: "Platinum", MinFrequency: 10, NESStatuses: []string{"E0"}},
				{Tier: "Gold", MinFrequency: 5, NESStatuses: []string{"E0", "S1"}},
				{Tier: "Silver", MinFrequency: 2, NESStatuses: []string{"E0", "S1", "S2"}},
			},
		},
	}
}
