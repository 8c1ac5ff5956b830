package progression

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCriteria_Defaults(t *testing.T) {
	got, err := LoadCriteria("")
	if err != nil {
		t.Fatalf("LoadCriteria failed: %v", err)
	}
	if got != DefaultCriteria() {
		t.Errorf("LoadCriteria(\"\") = %+v, want defaults %+v", got, DefaultCriteria())
	}
}

func TestLoadCriteria_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	yaml := "min_days_in_bucket: 21\npromotion_confidence_threshold: 0.9\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write criteria file: %v", err)
	}

	got, err := LoadCriteria(path)
	if err != nil {
		t.Fatalf("LoadCriteria failed: %v", err)
	}
	if got.MinDaysInBucket != 21 {
		t.Errorf("MinDaysInBucket = %d, want 21", got.MinDaysInBucket)
	}
	if got.PromotionConfidenceThreshold != 0.9 {
		t.Errorf("PromotionConfidenceThreshold = %f, want 0.9", got.PromotionConfidenceThreshold)
	}
	// Untouched keys keep their defaults.
	if got.CooldownPeriodDays != DefaultCriteria().CooldownPeriodDays {
		t.Errorf("CooldownPeriodDays = %d, want default", got.CooldownPeriodDays)
	}
}

func TestLoadCriteria_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	if err := os.WriteFile(path, []byte("min_days_in_bucket: 21\n"), 0o644); err != nil {
		t.Fatalf("write criteria file: %v", err)
	}
	t.Setenv("GRADER_MIN_DAYS_IN_BUCKET", "30")

	got, err := LoadCriteria(path)
	if err != nil {
		t.Fatalf("LoadCriteria failed: %v", err)
	}
	if got.MinDaysInBucket != 30 {
		t.Errorf("MinDaysInBucket = %d, want env override 30", got.MinDaysInBucket)
	}
}

func TestLoadCriteria_Invalid(t *testing.T) {
	t.Setenv("GRADER_PROMOTION_CONFIDENCE_THRESHOLD", "1.5")
	if _, err := LoadCriteria(""); err == nil {
		t.Error("expected validation error for out-of-range threshold")
	}
}

func TestLoadCriteria_MissingFile(t *testing.T) {
	if _, err := LoadCriteria(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing criteria file")
	}
}
