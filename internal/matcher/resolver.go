package matcher

import (
	"github.com/shopspring/decimal"

	"building-payment-reconciler/internal/models"
)

// Resolution is the resolver's full output for one transaction: the decision
// itself plus the material a reviewer needs when the decision is not final.
type Resolution struct {
	Decision *models.MatchDecision `json:"decision"`
	// TiedTenantIDs lists the tenants sharing the top score when the
	// cascade could not pick a single winner. Empty otherwise.
	TiedTenantIDs []string `json:"tied_tenant_ids,omitempty"`
	// Candidates holds the scored candidates considered, for diagnostics.
	Candidates []models.MatchCandidate `json:"candidates,omitempty"`
}

// Resolve turns the raw candidate list for a transaction into a decision.
// A memory hit wins outright before any candidate is considered. Amount
// adjustments apply only once a single leading candidate is selected, so a
// payment amount can shade confidence but never break a name-score tie.
func (me *MatchingEngine) Resolve(transactionID, memoryTenantID string, candidates []models.MatchCandidate, amount decimal.Decimal) *Resolution {
	if memoryTenantID != "" {
		return &Resolution{
			Decision: &models.MatchDecision{
				TransactionID: transactionID,
				TenantID:      memoryTenantID,
				Confidence:    100,
				Status:        models.StatusAutoConfirmed,
				StrategyUsed:  models.StrategyMemory,
			},
		}
	}

	if len(candidates) == 0 {
		return &Resolution{
			Decision: &models.MatchDecision{
				TransactionID: transactionID,
				Status:        models.StatusUnmatched,
				StrategyUsed:  models.StrategyNone,
			},
		}
	}

	leaders := topCandidates(candidates)
	if len(leaders) > 1 {
		tied := make([]string, 0, len(leaders))
		for _, c := range leaders {
			tied = append(tied, c.TenantID)
		}
		return &Resolution{
			Decision: &models.MatchDecision{
				TransactionID: transactionID,
				Confidence:    leaders[0].RawScore,
				Status:        models.StatusNeedsReview,
				StrategyUsed:  leaders[0].Strategy,
			},
			TiedTenantIDs: tied,
			Candidates:    candidates,
		}
	}

	winner := leaders[0]
	winner.AmountAdjustment = me.amountAdjustment(winner.TenantID, amount)
	confidence := winner.AdjustedScore()

	decision := &models.MatchDecision{
		TransactionID: transactionID,
		Confidence:    confidence,
		StrategyUsed:  winner.Strategy,
	}

	switch {
	case confidence >= me.Config.AutoConfirmThreshold:
		decision.TenantID = winner.TenantID
		decision.Status = models.StatusAutoConfirmed
	case confidence >= me.Config.ReviewThreshold:
		decision.TenantID = winner.TenantID
		decision.Status = models.StatusNeedsReview
	default:
		decision.Status = models.StatusUnmatched
	}

	return &Resolution{
		Decision:   decision,
		Candidates: candidates,
	}
}

// topCandidates returns all candidates sharing the highest raw score. Ties
// between duplicate entries for the same tenant collapse to one candidate.
func topCandidates(candidates []models.MatchCandidate) []models.MatchCandidate {
	best := candidates[0].RawScore
	for _, c := range candidates[1:] {
		if c.RawScore > best {
			best = c.RawScore
		}
	}

	var leaders []models.MatchCandidate
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.RawScore == best && !seen[c.TenantID] {
			seen[c.TenantID] = true
			leaders = append(leaders, c)
		}
	}
	return leaders
}

// amountAdjustment compares the transaction amount against the tenant's
// expected amount. A close amount nudges confidence up, a wildly different
// one pulls it down, and an unset expected amount leaves it untouched.
func (me *MatchingEngine) amountAdjustment(tenantID string, amount decimal.Decimal) float64 {
	entry, ok := me.RosterEntry(tenantID)
	if !ok || !entry.HasExpectedAmount() {
		return 0
	}

	if models.AmountsWithinPercent(entry.ExpectedAmount, amount, me.Config.AmountMatchTolerance) {
		return me.Config.AmountMatchBonus
	}

	if models.AmountDiscrepancyRatio(entry.ExpectedAmount, amount) > me.Config.AmountMismatchRatio {
		return -me.Config.AmountMismatchPenalty
	}

	return 0
}
