// Package config assembles the component configurations the CLI commands
// need from flag and environment values.
package config

import (
	"fmt"

	"building-payment-reconciler/internal/matcher"
	"building-payment-reconciler/internal/parsers"
	"building-payment-reconciler/internal/reconciler"
	"building-payment-reconciler/internal/reporter"
	"building-payment-reconciler/pkg/logger"
)

// MatchingOverrides carries the threshold flags a user may set on the
// command line. Zero values leave the profile's defaults in place.
type MatchingOverrides struct {
	AutoConfirmThreshold float64
	ReviewThreshold      float64
	FuzzyMinSimilarity   float64
}

// CreateMatchingConfig builds a matching configuration from a named profile
// with optional threshold overrides applied on top.
func CreateMatchingConfig(profile string, overrides MatchingOverrides) (*matcher.MatchingConfig, error) {
	var config *matcher.MatchingConfig

	switch profile {
	case "", "default":
		config = matcher.DefaultMatchingConfig()
	case "strict":
		config = matcher.StrictMatchingConfig()
	case "relaxed":
		config = matcher.RelaxedMatchingConfig()
	default:
		return nil, fmt.Errorf("unknown matching profile: %s (expected default, strict or relaxed)", profile)
	}

	if overrides.AutoConfirmThreshold > 0 {
		config.AutoConfirmThreshold = overrides.AutoConfirmThreshold
	}
	if overrides.ReviewThreshold > 0 {
		config.ReviewThreshold = overrides.ReviewThreshold
	}
	if overrides.FuzzyMinSimilarity > 0 {
		config.FuzzyMinSimilarity = overrides.FuzzyMinSimilarity
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	return config, nil
}

// CreateEngineConfig creates a reconciliation engine configuration
func CreateEngineConfig(workers int, showProgress bool) *reconciler.Config {
	config := reconciler.DefaultConfig()

	if workers > 0 {
		config.Workers = workers
	}
	if showProgress {
		config.ProgressInterval = reconciler.DefaultProgressInterval
	}

	return config
}

// CreateRosterParserConfig creates a roster parser configuration
func CreateRosterParserConfig() *parsers.RosterParserConfig {
	return parsers.DefaultRosterParserConfig()
}

// CreateStatementParserConfig creates a statement parser configuration
func CreateStatementParserConfig(sheetName string, keepDebits bool) *parsers.StatementParserConfig {
	config := parsers.DefaultStatementParserConfig()
	config.SheetName = sheetName
	config.KeepDebits = keepDebits
	return config
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, includeAutoConfirmed bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	config.IncludeAutoConfirmed = includeAutoConfirmed

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// CreateLoggerConfig creates a logger configuration from the verbosity flags.
// Quiet wins over verbose when both are set.
func CreateLoggerConfig(verbose, quiet bool) *logger.Config {
	if quiet {
		return logger.QuietConfig()
	}
	if verbose {
		return logger.DebugConfig()
	}
	return logger.DefaultConfig()
}
