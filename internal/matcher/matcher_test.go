package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/normalizer"
)

func createTestRoster() []*models.RosterEntry {
	return []*models.RosterEntry{
		models.NewRosterEntry("t-001", "יעקב כהן", "", decimal.NewFromInt(1500), "4"),
		models.NewRosterEntry("t-002", "שרה לוי", "", decimal.NewFromInt(1200), "7"),
		models.NewRosterEntry("t-003", "דוד מזרחי", "", decimal.Zero, "12"),
		models.NewRosterEntry("t-004", "Moshe Peretz", "", decimal.NewFromInt(900), "2"),
	}
}

func createTestEngine(t *testing.T, entries []*models.RosterEntry) *MatchingEngine {
	t.Helper()

	engine := NewMatchingEngine(DefaultMatchingConfig())
	if err := engine.LoadRoster(entries); err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	return engine
}

func TestFindCandidatesCascade(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	tests := []struct {
		name         string
		payerName    string
		wantTenantID string
		wantStrategy models.MatchStrategy
		wantScore    float64
	}{
		{
			name:         "exact match after normalization",
			payerName:    "יעקב כהן",
			wantTenantID: "t-001",
			wantStrategy: models.StrategyExact,
			wantScore:    100,
		},
		{
			name:         "exact match with title and quotes",
			payerName:    "מר יעקב כהן",
			wantTenantID: "t-001",
			wantStrategy: models.StrategyExact,
			wantScore:    100,
		},
		{
			name:         "reversed token order",
			payerName:    "כהן יעקב",
			wantTenantID: "t-001",
			wantStrategy: models.StrategyReversed,
			wantScore:    95,
		},
		{
			name:         "latin name case insensitive",
			payerName:    "MOSHE PERETZ",
			wantTenantID: "t-004",
			wantStrategy: models.StrategyExact,
			wantScore:    100,
		},
		{
			name:         "abbreviated first name via token strategy",
			payerName:    "י כהן",
			wantTenantID: "t-001",
			wantStrategy: models.StrategyToken,
			wantScore:    100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := engine.FindCandidates(normalizer.Normalize(tt.payerName))
			if len(candidates) != 1 {
				t.Fatalf("expected 1 candidate, got %d: %v", len(candidates), candidates)
			}

			got := candidates[0]
			if got.TenantID != tt.wantTenantID {
				t.Errorf("tenant = %s, want %s", got.TenantID, tt.wantTenantID)
			}
			if got.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %s, want %s", got.Strategy, tt.wantStrategy)
			}
			if got.RawScore != tt.wantScore {
				t.Errorf("score = %.2f, want %.2f", got.RawScore, tt.wantScore)
			}
		})
	}
}

func TestFindCandidatesFuzzy(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	// One extra letter: edit distance 1 against "יעקב כהנ".
	candidates := engine.FindCandidates(normalizer.Normalize("יעקב כהנא"))
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(candidates), candidates)
	}

	got := candidates[0]
	if got.TenantID != "t-001" {
		t.Errorf("tenant = %s, want t-001", got.TenantID)
	}
	if got.Strategy != models.StrategyFuzzy {
		t.Errorf("strategy = %s, want %s", got.Strategy, models.StrategyFuzzy)
	}
	if got.RawScore < 80 || got.RawScore >= 95 {
		t.Errorf("fuzzy score = %.2f, want in [80, 95)", got.RawScore)
	}
}

func TestFindCandidatesNoMatch(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	tests := []struct {
		name      string
		payerName string
	}{
		{"unknown name", "אברהם פרידמן"},
		{"single surname below token floor", "כהן"},
		{"empty after normalization", "מר"},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := engine.FindCandidates(normalizer.Normalize(tt.payerName))
			if len(candidates) != 0 {
				t.Errorf("expected no candidates, got %v", candidates)
			}
		})
	}
}

func TestExactOutranksFuzzy(t *testing.T) {
	entries := []*models.RosterEntry{
		models.NewRosterEntry("t-101", "יוסף לוי", "", decimal.NewFromInt(1000), ""),
		models.NewRosterEntry("t-102", "יוסי לוי", "", decimal.NewFromInt(1000), ""),
	}
	engine := createTestEngine(t, entries)

	// The payer is exactly t-101 and only fuzzily t-102. The cascade must
	// stop at the exact strategy and never surface the fuzzy neighbor.
	candidates := engine.FindCandidates(normalizer.Normalize("יוסף לוי"))
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(candidates), candidates)
	}
	if candidates[0].TenantID != "t-101" || candidates[0].Strategy != models.StrategyExact {
		t.Errorf("got %v, want exact match on t-101", candidates[0])
	}
}

func TestFindCandidatesAmbiguousExact(t *testing.T) {
	entries := []*models.RosterEntry{
		models.NewRosterEntry("t-201", "אבי מזרחי", "", decimal.NewFromInt(1000), "3"),
		models.NewRosterEntry("t-202", "אבי מזרחי", "", decimal.NewFromInt(1400), "9"),
	}
	engine := createTestEngine(t, entries)

	candidates := engine.FindCandidates(normalizer.Normalize("אבי מזרחי"))
	if len(candidates) != 2 {
		t.Fatalf("expected both tied candidates, got %d: %v", len(candidates), candidates)
	}
}

func TestResolveMemoryHitWins(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	// Even with an exact candidate for another tenant, the remembered
	// mapping decides.
	candidates := engine.FindCandidates(normalizer.Normalize("יעקב כהן"))
	resolution := engine.Resolve("tx-1", "t-002", candidates, decimal.NewFromInt(1500))

	decision := resolution.Decision
	if decision.TenantID != "t-002" {
		t.Errorf("tenant = %s, want t-002", decision.TenantID)
	}
	if decision.Status != models.StatusAutoConfirmed {
		t.Errorf("status = %s, want %s", decision.Status, models.StatusAutoConfirmed)
	}
	if decision.StrategyUsed != models.StrategyMemory {
		t.Errorf("strategy = %s, want %s", decision.StrategyUsed, models.StrategyMemory)
	}
	if decision.Confidence != 100 {
		t.Errorf("confidence = %.2f, want 100", decision.Confidence)
	}
}

func TestResolveAmountAdjustments(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	tests := []struct {
		name           string
		payerName      string
		amount         decimal.Decimal
		wantTenantID   string
		wantStatus     models.MatchStatus
		wantConfidence float64
	}{
		{
			name:           "reversed match boosted to ceiling by matching amount",
			payerName:      "כהן יעקב",
			amount:         decimal.NewFromInt(1500),
			wantTenantID:   "t-001",
			wantStatus:     models.StatusAutoConfirmed,
			wantConfidence: 100,
		},
		{
			name:           "reversed match within tolerance gets bonus",
			payerName:      "כהן יעקב",
			amount:         decimal.NewFromInt(1520),
			wantTenantID:   "t-001",
			wantStatus:     models.StatusAutoConfirmed,
			wantConfidence: 100,
		},
		{
			name:           "moderate discrepancy leaves score unchanged",
			payerName:      "כהן יעקב",
			amount:         decimal.NewFromInt(1600),
			wantTenantID:   "t-001",
			wantStatus:     models.StatusAutoConfirmed,
			wantConfidence: 95,
		},
		{
			name:           "large discrepancy demotes to review",
			payerName:      "כהן יעקב",
			amount:         decimal.NewFromInt(3100),
			wantTenantID:   "t-001",
			wantStatus:     models.StatusNeedsReview,
			wantConfidence: 80,
		},
		{
			name:           "no expected amount means no adjustment",
			payerName:      "מזרחי דוד",
			amount:         decimal.NewFromInt(50),
			wantTenantID:   "t-003",
			wantStatus:     models.StatusAutoConfirmed,
			wantConfidence: 95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := normalizer.Normalize(tt.payerName)
			candidates := engine.FindCandidates(normalized)
			resolution := engine.Resolve("tx-1", "", candidates, tt.amount)

			decision := resolution.Decision
			if decision.TenantID != tt.wantTenantID {
				t.Errorf("tenant = %s, want %s", decision.TenantID, tt.wantTenantID)
			}
			if decision.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", decision.Status, tt.wantStatus)
			}
			if decision.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %.2f, want %.2f", decision.Confidence, tt.wantConfidence)
			}
		})
	}
}

func TestResolveFuzzyWithBonusCrossesAutoThreshold(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	// Fuzzy alone lands below 90. The amount bonus lifts it over the
	// auto-confirm line.
	normalized := normalizer.Normalize("יעקב כהנא")
	candidates := engine.FindCandidates(normalized)
	resolution := engine.Resolve("tx-1", "", candidates, decimal.NewFromInt(1500))

	decision := resolution.Decision
	if decision.Status != models.StatusAutoConfirmed {
		t.Errorf("status = %s, want %s (confidence %.2f)",
			decision.Status, models.StatusAutoConfirmed, decision.Confidence)
	}
	if decision.TenantID != "t-001" {
		t.Errorf("tenant = %s, want t-001", decision.TenantID)
	}

	// Without the bonus the same candidates stay in review.
	resolution = engine.Resolve("tx-2", "", candidates, decimal.NewFromInt(1600))
	if resolution.Decision.Status != models.StatusNeedsReview {
		t.Errorf("status = %s, want %s", resolution.Decision.Status, models.StatusNeedsReview)
	}
}

func TestResolveTieNeedsReview(t *testing.T) {
	entries := []*models.RosterEntry{
		models.NewRosterEntry("t-201", "אבי מזרחי", "", decimal.NewFromInt(1000), "3"),
		models.NewRosterEntry("t-202", "אבי מזרחי", "", decimal.NewFromInt(1400), "9"),
	}
	engine := createTestEngine(t, entries)

	normalized := normalizer.Normalize("אבי מזרחי")
	candidates := engine.FindCandidates(normalized)

	// The amount exactly matches t-202's expected amount, but amounts must
	// not break name-score ties.
	resolution := engine.Resolve("tx-1", "", candidates, decimal.NewFromInt(1400))

	decision := resolution.Decision
	if decision.TenantID != "" {
		t.Errorf("tied decision must not assign a tenant, got %s", decision.TenantID)
	}
	if decision.Status != models.StatusNeedsReview {
		t.Errorf("status = %s, want %s", decision.Status, models.StatusNeedsReview)
	}
	if len(resolution.TiedTenantIDs) != 2 {
		t.Errorf("tied tenants = %v, want both", resolution.TiedTenantIDs)
	}
}

func TestResolveUnmatched(t *testing.T) {
	engine := createTestEngine(t, createTestRoster())

	resolution := engine.Resolve("tx-1", "", nil, decimal.NewFromInt(1000))

	decision := resolution.Decision
	if decision.TenantID != "" {
		t.Errorf("unmatched decision must not assign a tenant, got %s", decision.TenantID)
	}
	if decision.Status != models.StatusUnmatched {
		t.Errorf("status = %s, want %s", decision.Status, models.StatusUnmatched)
	}
	if decision.StrategyUsed != models.StrategyNone {
		t.Errorf("strategy = %s, want %s", decision.StrategyUsed, models.StrategyNone)
	}
	if decision.Confidence != 0 {
		t.Errorf("confidence = %.2f, want 0", decision.Confidence)
	}
}

func TestSuggestMatches(t *testing.T) {
	entries := []*models.RosterEntry{
		models.NewRosterEntry("t-101", "יוסף לוי", "", decimal.NewFromInt(1000), ""),
		models.NewRosterEntry("t-102", "יוסי לוי", "", decimal.NewFromInt(1000), ""),
		models.NewRosterEntry("t-103", "רחל ברק", "", decimal.NewFromInt(1000), ""),
	}
	engine := createTestEngine(t, entries)

	suggestions := engine.SuggestMatches(normalizer.Normalize("יוסף לוי"), 3)
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %v", len(suggestions), suggestions)
	}

	if suggestions[0].TenantID != "t-101" || suggestions[0].Score != 100 {
		t.Errorf("first suggestion = %+v, want t-101 at 100", suggestions[0])
	}
	if suggestions[1].TenantID != "t-102" {
		t.Errorf("second suggestion = %+v, want t-102", suggestions[1])
	}
	if suggestions[1].Score >= suggestions[0].Score {
		t.Errorf("suggestions not sorted by score: %v", suggestions)
	}

	if got := engine.SuggestMatches(normalizer.Normalize("יוסף לוי"), 1); len(got) != 1 {
		t.Errorf("topN=1 returned %d suggestions", len(got))
	}
}

func TestLoadRosterDuplicateTenant(t *testing.T) {
	engine := NewMatchingEngine(DefaultMatchingConfig())
	entries := []*models.RosterEntry{
		models.NewRosterEntry("t-001", "יעקב כהן", "", decimal.NewFromInt(1500), ""),
		models.NewRosterEntry("t-001", "שרה לוי", "", decimal.NewFromInt(1200), ""),
	}

	if err := engine.LoadRoster(entries); err == nil {
		t.Error("expected error for duplicate tenant ID")
	}
}

func TestMatchingConfigValidation(t *testing.T) {
	for _, factory := range []struct {
		name   string
		config *MatchingConfig
	}{
		{"default", DefaultMatchingConfig()},
		{"strict", StrictMatchingConfig()},
		{"relaxed", RelaxedMatchingConfig()},
	} {
		t.Run(factory.name, func(t *testing.T) {
			if err := factory.config.Validate(); err != nil {
				t.Errorf("%s config should be valid: %v", factory.name, err)
			}
		})
	}

	invalid := DefaultMatchingConfig()
	invalid.ReviewThreshold = invalid.AutoConfirmThreshold + 1
	if err := invalid.Validate(); err == nil {
		t.Error("expected error when review threshold exceeds auto-confirm threshold")
	}
}
