package config

import (
	"testing"

	"building-payment-reconciler/internal/reporter"
	"building-payment-reconciler/pkg/logger"
)

func TestCreateMatchingConfigProfiles(t *testing.T) {
	tests := []struct {
		profile             string
		wantErr             bool
		wantAutoConfirm     float64
		wantFuzzySimilarity float64
	}{
		{"", false, 90, 80},
		{"default", false, 90, 80},
		{"strict", false, 100, 90},
		{"relaxed", false, 85, 70},
		{"aggressive", true, 0, 0},
	}

	for _, tt := range tests {
		t.Run("profile_"+tt.profile, func(t *testing.T) {
			config, err := CreateMatchingConfig(tt.profile, MatchingOverrides{})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for profile %q", tt.profile)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateMatchingConfig(%q) failed: %v", tt.profile, err)
			}
			if config.AutoConfirmThreshold != tt.wantAutoConfirm {
				t.Errorf("auto-confirm threshold = %v, want %v", config.AutoConfirmThreshold, tt.wantAutoConfirm)
			}
			if config.FuzzyMinSimilarity != tt.wantFuzzySimilarity {
				t.Errorf("fuzzy min similarity = %v, want %v", config.FuzzyMinSimilarity, tt.wantFuzzySimilarity)
			}
		})
	}
}

func TestCreateMatchingConfigOverrides(t *testing.T) {
	config, err := CreateMatchingConfig("default", MatchingOverrides{
		AutoConfirmThreshold: 95,
		ReviewThreshold:      75,
	})
	if err != nil {
		t.Fatalf("CreateMatchingConfig failed: %v", err)
	}

	if config.AutoConfirmThreshold != 95 {
		t.Errorf("auto-confirm threshold = %v, want 95", config.AutoConfirmThreshold)
	}
	if config.ReviewThreshold != 75 {
		t.Errorf("review threshold = %v, want 75", config.ReviewThreshold)
	}
	if config.FuzzyMinSimilarity != 80 {
		t.Errorf("fuzzy min similarity should keep its default, got %v", config.FuzzyMinSimilarity)
	}
}

func TestCreateMatchingConfigInvalidOverride(t *testing.T) {
	// Review threshold above auto-confirm is contradictory
	_, err := CreateMatchingConfig("default", MatchingOverrides{
		AutoConfirmThreshold: 80,
		ReviewThreshold:      95,
	})
	if err == nil {
		t.Fatal("expected validation error for review threshold above auto-confirm")
	}
}

func TestCreateReportConfig(t *testing.T) {
	for _, format := range []string{"console", "json", "csv"} {
		config, err := CreateReportConfig(format, false)
		if err != nil {
			t.Fatalf("CreateReportConfig(%q) failed: %v", format, err)
		}
		if config.Format != reporter.OutputFormat(format) {
			t.Errorf("format = %v, want %v", config.Format, format)
		}
	}

	if _, err := CreateReportConfig("xml", false); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCreateEngineConfig(t *testing.T) {
	config := CreateEngineConfig(0, false)
	if config.Workers != 1 {
		t.Errorf("default workers = %d, want 1", config.Workers)
	}
	if config.ProgressInterval != 0 {
		t.Errorf("progress interval should be disabled, got %v", config.ProgressInterval)
	}

	config = CreateEngineConfig(4, true)
	if config.Workers != 4 {
		t.Errorf("workers = %d, want 4", config.Workers)
	}
	if config.ProgressInterval <= 0 {
		t.Error("progress interval should be set when progress is enabled")
	}
}

func TestCreateLoggerConfig(t *testing.T) {
	if config := CreateLoggerConfig(false, false); config.Level != logger.InfoLevel {
		t.Errorf("default level = %v, want info", config.Level)
	}
	if config := CreateLoggerConfig(true, false); config.Level != logger.DebugLevel {
		t.Errorf("verbose level = %v, want debug", config.Level)
	}

	// Quiet wins over verbose
	if config := CreateLoggerConfig(true, true); config.Level != logger.ErrorLevel {
		t.Errorf("quiet level = %v, want error", config.Level)
	}
}
