package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStrategy identifies which matching strategy produced a candidate or decision.
// The set is closed: every strategy the engine can use is listed here, and the
// confidence resolver handles each one exhaustively.
type MatchStrategy string

const (
	// StrategyExact matches when the normalized payer name equals a roster name.
	StrategyExact MatchStrategy = "exact"
	// StrategyReversed matches names whose token multisets are equal,
	// covering "last first" vs "first last" ordering.
	StrategyReversed MatchStrategy = "reversed"
	// StrategyFuzzy matches on normalized edit-distance similarity.
	StrategyFuzzy MatchStrategy = "fuzzy"
	// StrategyToken matches on token overlap, including single-letter abbreviations.
	StrategyToken MatchStrategy = "token"
	// StrategyMemory matches from a previously human-confirmed name mapping.
	StrategyMemory MatchStrategy = "memory"
	// StrategyNone is used on decisions where no strategy produced a match.
	StrategyNone MatchStrategy = "none"
)

// String returns the string representation of MatchStrategy
func (s MatchStrategy) String() string {
	return string(s)
}

// IsValid checks if the match strategy is one of the known strategies
func (s MatchStrategy) IsValid() bool {
	switch s {
	case StrategyExact, StrategyReversed, StrategyFuzzy, StrategyToken, StrategyMemory, StrategyNone:
		return true
	}
	return false
}

// MatchStatus classifies how a match decision should be handled downstream.
type MatchStatus string

const (
	// StatusAutoConfirmed indicates the match is applied without human review.
	StatusAutoConfirmed MatchStatus = "auto_confirmed"
	// StatusNeedsReview indicates the match must be approved or corrected by a human.
	StatusNeedsReview MatchStatus = "needs_review"
	// StatusUnmatched indicates no tenant could be assigned to the transaction.
	StatusUnmatched MatchStatus = "unmatched"
)

// String returns the string representation of MatchStatus
func (s MatchStatus) String() string {
	return string(s)
}

// IsValid checks if the match status is valid
func (s MatchStatus) IsValid() bool {
	return s == StatusAutoConfirmed || s == StatusNeedsReview || s == StatusUnmatched
}

// RosterEntry represents one tenant expected to pay for a building period.
type RosterEntry struct {
	TenantID        string          `json:"tenant_id" csv:"tenant_id"`
	DisplayName     string          `json:"display_name" csv:"display_name"`
	FullName        string          `json:"full_name,omitempty" csv:"full_name"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount" csv:"expected_amount"`
	ApartmentNumber string          `json:"apartment_number,omitempty" csv:"apartment_number"`
}

// NewRosterEntry creates a new RosterEntry instance
func NewRosterEntry(tenantID, displayName, fullName string, expectedAmount decimal.Decimal, apartment string) *RosterEntry {
	return &RosterEntry{
		TenantID:        tenantID,
		DisplayName:     displayName,
		FullName:        fullName,
		ExpectedAmount:  expectedAmount,
		ApartmentNumber: apartment,
	}
}

// Validate performs basic validation on the RosterEntry
func (r *RosterEntry) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return fmt.Errorf("roster entry tenant ID cannot be empty")
	}

	if strings.TrimSpace(r.DisplayName) == "" {
		return fmt.Errorf("roster entry display name cannot be empty")
	}

	if r.ExpectedAmount.IsNegative() {
		return fmt.Errorf("roster entry expected amount cannot be negative: %s", r.ExpectedAmount.String())
	}

	return nil
}

// MatchingName returns the name preferred for matching: the full name when
// present, otherwise the display name.
func (r *RosterEntry) MatchingName() string {
	if strings.TrimSpace(r.FullName) != "" {
		return r.FullName
	}
	return r.DisplayName
}

// HasExpectedAmount reports whether an expected payment amount is set.
func (r *RosterEntry) HasExpectedAmount() bool {
	return r.ExpectedAmount.IsPositive()
}

// String returns a string representation of the RosterEntry
func (r *RosterEntry) String() string {
	return fmt.Sprintf("RosterEntry{TenantID: %s, Name: %s, Apartment: %s, Expected: %s}",
		r.TenantID, r.DisplayName, r.ApartmentNumber, r.ExpectedAmount.String())
}

// Transaction represents one bank-statement transaction as parsed upstream.
// Transactions are immutable once parsed; the engine never mutates them.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	PayerName     string          `json:"payer_name"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
}

// NewTransaction creates a new Transaction instance
func NewTransaction(id, payerName string, amount decimal.Decimal, date time.Time) *Transaction {
	return &Transaction{
		TransactionID: id,
		PayerName:     payerName,
		Amount:        amount,
		Date:          date,
	}
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.TransactionID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	return nil
}

// IsCredit returns true if the transaction is a credit (incoming payment).
// Only credits are reconciled against the roster.
func (t *Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Payer: %q, Amount: %s, Date: %s}",
		t.TransactionID, t.PayerName, t.Amount.String(), t.Date.Format("2006-01-02"))
}

// MatchCandidate is an ephemeral candidate produced for a single transaction
// by one matching strategy. Candidates are never persisted.
type MatchCandidate struct {
	TenantID         string        `json:"tenant_id"`
	Strategy         MatchStrategy `json:"strategy"`
	RawScore         float64       `json:"raw_score"`
	AmountAdjustment float64       `json:"amount_adjustment"`
}

// AdjustedScore returns the raw score with the amount adjustment applied,
// clamped to the 0-100 scale.
func (c *MatchCandidate) AdjustedScore() float64 {
	score := c.RawScore + c.AmountAdjustment
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// String returns a string representation of the MatchCandidate
func (c *MatchCandidate) String() string {
	return fmt.Sprintf("MatchCandidate{TenantID: %s, Strategy: %s, Score: %.1f%+.1f}",
		c.TenantID, c.Strategy, c.RawScore, c.AmountAdjustment)
}

// MatchDecision is the engine's output unit: one per input transaction.
// An empty TenantID means the transaction is unmatched.
type MatchDecision struct {
	TransactionID string        `json:"transaction_id"`
	TenantID      string        `json:"tenant_id,omitempty"`
	Confidence    float64       `json:"confidence"`
	Status        MatchStatus   `json:"status"`
	StrategyUsed  MatchStrategy `json:"strategy_used"`
}

// IsMatched reports whether the decision assigns a tenant.
func (d *MatchDecision) IsMatched() bool {
	return d.TenantID != ""
}

// String returns a string representation of the MatchDecision
func (d *MatchDecision) String() string {
	tenant := d.TenantID
	if tenant == "" {
		tenant = "<none>"
	}
	return fmt.Sprintf("MatchDecision{Transaction: %s, Tenant: %s, Confidence: %.1f, Status: %s, Strategy: %s}",
		d.TransactionID, tenant, d.Confidence, d.Status, d.StrategyUsed)
}

// MappingCreatedBy records how a name mapping came to exist.
type MappingCreatedBy string

const (
	// MappingCreatedManual marks mappings created by a human confirmation or override.
	MappingCreatedManual MappingCreatedBy = "manual"
	// MappingCreatedAuto marks mappings created by an automated caller.
	MappingCreatedAuto MappingCreatedBy = "auto"
)

// NameMapping is a persisted association between a normalized payer name and
// a tenant, created the first time a human confirms or overrides a match.
type NameMapping struct {
	ID              string           `json:"id"`
	NormalizedName  string           `json:"normalized_name"`
	TenantID        string           `json:"tenant_id"`
	ConfirmedCount  int              `json:"confirmed_count"`
	CreatedBy       MappingCreatedBy `json:"created_by"`
	LastConfirmedAt time.Time        `json:"last_confirmed_at"`
}

// Validate performs basic validation on the NameMapping
func (m *NameMapping) Validate() error {
	if strings.TrimSpace(m.NormalizedName) == "" {
		return fmt.Errorf("name mapping normalized name cannot be empty")
	}

	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("name mapping tenant ID cannot be empty")
	}

	if m.ConfirmedCount < 1 {
		return fmt.Errorf("name mapping confirmed count must be at least 1: %d", m.ConfirmedCount)
	}

	return nil
}

// String returns a string representation of the NameMapping
func (m *NameMapping) String() string {
	return fmt.Sprintf("NameMapping{Name: %q, TenantID: %s, Confirmed: %d, LastConfirmedAt: %s}",
		m.NormalizedName, m.TenantID, m.ConfirmedCount, m.LastConfirmedAt.Format(time.RFC3339))
}

// ParseDecimalFromString parses a decimal value from string with validation,
// tolerating currency symbols and thousand separators as they appear in
// statement exports.
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "₪", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using the date
// formats that show up in bank exports.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006", // Israeli banks use day-first dates
		"02/01/06",
		"02.01.2006",
		"02-01-2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// AmountsWithinPercent reports whether actual is within the given fractional
// tolerance of expected (e.g. tolerance 0.02 means within 2%).
func AmountsWithinPercent(expected, actual decimal.Decimal, tolerance float64) bool {
	if !expected.IsPositive() {
		return false
	}

	diff := actual.Sub(expected).Abs()
	limit := expected.Mul(decimal.NewFromFloat(tolerance))
	return diff.LessThanOrEqual(limit)
}

// AmountDiscrepancyRatio returns abs(actual-expected)/expected, or 0 when no
// expected amount is set.
func AmountDiscrepancyRatio(expected, actual decimal.Decimal) float64 {
	if !expected.IsPositive() {
		return 0
	}

	return actual.Sub(expected).Abs().Div(expected).InexactFloat64()
}
