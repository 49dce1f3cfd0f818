// Package matcher provides the core name-matching engine and configuration.
//
// The engine matches free-text payer names from bank transactions against a
// roster of tenants. Matching runs as an ordered cascade of strategies, each
// higher-precision than the next:
//  1. Exact: normalized payer name equals a roster name
//  2. Reversed: token multisets are equal ("last first" vs "first last")
//  3. Fuzzy: normalized edit-distance similarity above a floor
//  4. Token: token overlap including single-letter abbreviations
//
// The first strategy that produces candidates wins; later, looser strategies
// never run once an earlier one has resolved the name. A separate confidence
// resolver combines cascade output with memory hits, applies an amount-based
// adjustment, and classifies each decision as auto-confirmed, needs-review,
// or unmatched.
//
// Example usage:
//
//	engine := matcher.NewMatchingEngine(matcher.DefaultMatchingConfig())
//	if err := engine.LoadRoster(entries); err != nil { ... }
//
//	candidates := engine.FindCandidates(normalizedPayer)
//	resolution := engine.Resolve(txID, memoryHit, candidates, amount)
package matcher

import "fmt"

// MatchingConfig holds configuration parameters for name matching and
// decision classification. Strategy floors and classification thresholds are
// deliberately independent: the fuzzy floor controls which candidates exist
// at all, while the auto-confirm boundary controls which decisions skip
// human review. They happen to sit close together (80 vs 90) and tuning one
// must not move the other.
type MatchingConfig struct {
	// ExactScore is the raw score assigned by the exact strategy
	ExactScore float64 `json:"exact_score"`

	// ReversedScore is the raw score assigned by the reversed-name strategy
	ReversedScore float64 `json:"reversed_score"`

	// FuzzyMinSimilarity is the minimum edit-distance similarity (0-100)
	// for the fuzzy strategy to produce a candidate
	FuzzyMinSimilarity float64 `json:"fuzzy_min_similarity"`

	// TokenMinScore is the minimum token-overlap score (0-100) for the
	// token strategy to produce a candidate
	TokenMinScore float64 `json:"token_min_score"`

	// AutoConfirmThreshold is the confidence at or above which a decision
	// is applied without human review
	AutoConfirmThreshold float64 `json:"auto_confirm_threshold"`

	// ReviewThreshold is the confidence at or above which a decision is
	// surfaced for review; below it the transaction is left unmatched
	ReviewThreshold float64 `json:"review_threshold"`

	// AmountMatchTolerance is the fractional discrepancy (e.g. 0.02 = 2%)
	// within which the amount adjustment applies its bonus
	AmountMatchTolerance float64 `json:"amount_match_tolerance"`

	// AmountMatchBonus is added to a candidate's score when the transaction
	// amount is within tolerance of the tenant's expected amount
	AmountMatchBonus float64 `json:"amount_match_bonus"`

	// AmountMismatchRatio is the fractional discrepancy (e.g. 0.5 = 50%)
	// beyond which the amount adjustment applies its penalty
	AmountMismatchRatio float64 `json:"amount_mismatch_ratio"`

	// AmountMismatchPenalty is subtracted from a candidate's score when the
	// discrepancy exceeds AmountMismatchRatio
	AmountMismatchPenalty float64 `json:"amount_mismatch_penalty"`

	// MaxSuggestions limits how many ranked suggestions are returned for
	// manual review of an unresolved payer name
	MaxSuggestions int `json:"max_suggestions"`
}

// DefaultMatchingConfig returns a configuration with the thresholds used in
// production reconciliation
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		ExactScore:            100,
		ReversedScore:         95,
		FuzzyMinSimilarity:    80,
		TokenMinScore:         60,
		AutoConfirmThreshold:  90,
		ReviewThreshold:       70,
		AmountMatchTolerance:  0.02,
		AmountMatchBonus:      10,
		AmountMismatchRatio:   0.5,
		AmountMismatchPenalty: 15,
		MaxSuggestions:        3,
	}
}

// StrictMatchingConfig returns a configuration that auto-confirms only exact
// and memory matches and flags everything else for review
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.FuzzyMinSimilarity = 90
	config.TokenMinScore = 80
	config.AutoConfirmThreshold = 100
	config.ReviewThreshold = 80
	return config
}

// RelaxedMatchingConfig returns a configuration for exploratory matching
// over low-quality statement data
func RelaxedMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.FuzzyMinSimilarity = 70
	config.TokenMinScore = 50
	config.AutoConfirmThreshold = 85
	config.ReviewThreshold = 60
	return config
}

// Validate checks if the matching configuration is valid
func (mc *MatchingConfig) Validate() error {
	scores := map[string]float64{
		"exact_score":          mc.ExactScore,
		"reversed_score":       mc.ReversedScore,
		"fuzzy_min_similarity": mc.FuzzyMinSimilarity,
		"token_min_score":      mc.TokenMinScore,
	}
	for name, v := range scores {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100: %f", name, v)
		}
	}

	if mc.AutoConfirmThreshold < 0 || mc.AutoConfirmThreshold > 100 {
		return fmt.Errorf("auto confirm threshold must be between 0 and 100: %f", mc.AutoConfirmThreshold)
	}

	if mc.ReviewThreshold < 0 || mc.ReviewThreshold > mc.AutoConfirmThreshold {
		return fmt.Errorf("review threshold must be between 0 and the auto confirm threshold: %f", mc.ReviewThreshold)
	}

	if mc.AmountMatchTolerance < 0 || mc.AmountMatchTolerance > 1 {
		return fmt.Errorf("amount match tolerance must be between 0.0 and 1.0: %f", mc.AmountMatchTolerance)
	}

	if mc.AmountMismatchRatio <= mc.AmountMatchTolerance {
		return fmt.Errorf("amount mismatch ratio must exceed the match tolerance: %f", mc.AmountMismatchRatio)
	}

	if mc.AmountMatchBonus < 0 || mc.AmountMismatchPenalty < 0 {
		return fmt.Errorf("amount adjustments cannot be negative: bonus %f, penalty %f",
			mc.AmountMatchBonus, mc.AmountMismatchPenalty)
	}

	if mc.MaxSuggestions < 0 {
		return fmt.Errorf("max suggestions cannot be negative: %d", mc.MaxSuggestions)
	}

	return nil
}

// Clone creates a copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}
	copied := *mc
	return &copied
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{FuzzyFloor: %.0f, TokenFloor: %.0f, AutoConfirm: %.0f, Review: %.0f, AmountTolerance: %.0f%%}",
		mc.FuzzyMinSimilarity, mc.TokenMinScore, mc.AutoConfirmThreshold, mc.ReviewThreshold, mc.AmountMatchTolerance*100)
}
