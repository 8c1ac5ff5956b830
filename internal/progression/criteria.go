package progression

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Criteria are the tunable thresholds for tier transitions. Read-only after
// load and passed explicitly into Evaluate so alternate criteria are trivial
// to test against.
type Criteria struct {
	MinReportsForPromotion       int     `koanf:"min_reports_for_promotion"`
	MinReportsForDemotion        int     `koanf:"min_reports_for_demotion"`
	MinDaysInBucket              int     `koanf:"min_days_in_bucket"`
	PromotionConfidenceThreshold float64 `koanf:"promotion_confidence_threshold"`
	DemotionConfidenceThreshold  float64 `koanf:"demotion_confidence_threshold"`
	CooldownPeriodDays           int     `koanf:"cooldown_period_days"`
	MaxBucketChangesPerMonth     int     `koanf:"max_bucket_changes_per_month"`
}

// DefaultCriteria returns the production defaults.
func DefaultCriteria() Criteria {
	return Criteria{
		MinReportsForPromotion:       10,
		MinReportsForDemotion:        5,
		MinDaysInBucket:              14,
		PromotionConfidenceThreshold: 0.80,
		DemotionConfidenceThreshold:  0.75,
		CooldownPeriodDays:           7,
		MaxBucketChangesPerMonth:     2,
	}
}

// LoadCriteria builds Criteria by layering defaults, an optional YAML file,
// and environment variables.
// Order of precedence (low -> high):
//  1. DefaultCriteria()
//  2. file (YAML) if path is non-empty
//  3. env (prefix GRADER_, e.g. GRADER_MIN_DAYS_IN_BUCKET)
func LoadCriteria(path string) (Criteria, error) {
	cfg := DefaultCriteria()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Criteria{}, fmt.Errorf("load criteria file %s: %w", path, err)
		}
	}

	// GRADER_MIN_DAYS_IN_BUCKET -> min_days_in_bucket (flat keys matching
	// the koanf tags on the struct).
	envProvider := env.Provider("GRADER_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "grader_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Criteria{}, fmt.Errorf("load criteria env: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Criteria{}, fmt.Errorf("unmarshal criteria: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Criteria{}, err
	}
	return cfg, nil
}

func (c Criteria) validate() error {
	if c.PromotionConfidenceThreshold <= 0 || c.PromotionConfidenceThreshold > 1 {
		return fmt.Errorf("promotion confidence threshold %f outside (0,1]", c.PromotionConfidenceThreshold)
	}
	if c.DemotionConfidenceThreshold <= 0 || c.DemotionConfidenceThreshold > 1 {
		return fmt.Errorf("demotion confidence threshold %f outside (0,1]", c.DemotionConfidenceThreshold)
	}
	if c.MinReportsForPromotion < 0 || c.MinReportsForDemotion < 0 ||
		c.MinDaysInBucket < 0 || c.CooldownPeriodDays < 0 || c.MaxBucketChangesPerMonth < 0 {
		return fmt.Errorf("criteria counters must be non-negative")
	}
	return nil
}
