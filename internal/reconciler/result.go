package reconciler

import (
	"fmt"
	"time"

	"building-payment-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// SkippedTransaction records one input transaction that was rejected before
// matching, with the reason it was skipped.
type SkippedTransaction struct {
	Index         int    `json:"index"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason"`
}

// BatchResult is the outcome of reconciling one statement batch. Decisions
// appear in input order, one per accepted transaction.
type BatchResult struct {
	Decisions []*models.MatchDecision `json:"decisions"`
	Skipped   []SkippedTransaction    `json:"skipped,omitempty"`

	// TiedCandidates lists, per transaction that ended in review because of
	// a score tie, the tenant ids sharing the top score.
	TiedCandidates map[string][]string `json:"tied_candidates,omitempty"`

	Summary  *BatchSummary `json:"summary"`
	Duration time.Duration `json:"duration"`
}

// BatchSummary aggregates decision counts for a batch.
type BatchSummary struct {
	Total         int                          `json:"total"`
	AutoConfirmed int                          `json:"auto_confirmed"`
	NeedsReview   int                          `json:"needs_review"`
	Unmatched     int                          `json:"unmatched"`
	ByStrategy    map[models.MatchStrategy]int `json:"by_strategy"`
	MatchRate     float64                      `json:"match_rate"`

	// MatchedAmount sums the amounts of transactions that resolved to a
	// tenant (auto-confirmed or review); UnmatchedAmount sums the rest.
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
}

// NewBatchSummary builds a summary from a decision list
func NewBatchSummary(decisions []*models.MatchDecision) *BatchSummary {
	summary := &BatchSummary{
		Total:      len(decisions),
		ByStrategy: make(map[models.MatchStrategy]int),
	}

	for _, decision := range decisions {
		switch decision.Status {
		case models.StatusAutoConfirmed:
			summary.AutoConfirmed++
		case models.StatusNeedsReview:
			summary.NeedsReview++
		default:
			summary.Unmatched++
		}
		summary.ByStrategy[decision.StrategyUsed]++
	}

	if summary.Total > 0 {
		summary.MatchRate = float64(summary.AutoConfirmed+summary.NeedsReview) / float64(summary.Total) * 100
	}

	return summary
}

// addAmounts accumulates the amount totals for one decided transaction
func (s *BatchSummary) addAmounts(decision *models.MatchDecision, amount decimal.Decimal) {
	if decision.Status == models.StatusUnmatched {
		s.UnmatchedAmount = s.UnmatchedAmount.Add(amount)
		return
	}
	s.MatchedAmount = s.MatchedAmount.Add(amount)
}

// String returns a one-line human-readable summary
func (s *BatchSummary) String() string {
	return fmt.Sprintf("%d transactions: %d auto-confirmed, %d need review, %d unmatched (%.1f%% matched)",
		s.Total, s.AutoConfirmed, s.NeedsReview, s.Unmatched, s.MatchRate)
}
