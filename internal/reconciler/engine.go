// Package reconciler orchestrates the reconciliation workflow: roster
// loading, per-transaction matching through the strategy cascade, match
// memory lookups, and human confirmation feedback.
package reconciler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"building-payment-reconciler/internal/matcher"
	"building-payment-reconciler/internal/memory"
	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/normalizer"
	"building-payment-reconciler/pkg/errors"
	"building-payment-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
)

// DefaultProgressInterval is the progress logging cadence used when a
// caller enables progress without choosing one.
const DefaultProgressInterval = 5 * time.Second

// Config controls batch processing behavior.
type Config struct {
	// Workers is the number of transactions matched concurrently. Values
	// below 2 mean sequential processing.
	Workers int `json:"workers"`

	// MemoryRetries bounds how often a failing mapping-store call is
	// retried before the engine degrades to cascade-only matching.
	MemoryRetries      int           `json:"memory_retries"`
	MemoryRetryBackoff time.Duration `json:"memory_retry_backoff"`

	// ProgressInterval enables periodic progress logging when positive.
	ProgressInterval time.Duration `json:"progress_interval"`

	ValidateInputs bool `json:"validate_inputs"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:            1,
		MemoryRetries:      3,
		MemoryRetryBackoff: 100 * time.Millisecond,
		ValidateInputs:     true,
	}
}

// Validate validates the engine configuration
func (c *Config) Validate() error {
	if c.MemoryRetries < 1 {
		return fmt.Errorf("memory retries must be at least 1, got %d", c.MemoryRetries)
	}
	if c.MemoryRetryBackoff < 0 {
		return fmt.Errorf("memory retry backoff cannot be negative")
	}
	return nil
}

// Engine ties the matching engine and the match-memory store together and
// exposes the reconciliation operations.
type Engine struct {
	matcher *matcher.MatchingEngine
	store   memory.Store
	config  *Config
	logger  logger.Logger

	// seen remembers reconciled transactions so Confirm and Override can
	// resolve a transaction id back to its payer name.
	mu   sync.RWMutex
	seen map[string]*models.Transaction
}

// NewEngine creates a reconciliation engine. The store is wrapped with
// bounded retries per the config; pass an InMemoryStore when no persistence
// is wanted.
func NewEngine(matchingConfig *matcher.MatchingConfig, store memory.Store, config *Config) (*Engine, error) {
	if store == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "store", nil, nil).
			WithSuggestion("provide a mapping store; use an in-memory store for one-off runs")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "engine", config, err)
	}

	matchingEngine := matcher.NewMatchingEngine(matchingConfig)
	if err := matchingEngine.ValidateConfiguration(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", matchingConfig, err)
	}

	return &Engine{
		matcher: matchingEngine,
		store:   memory.NewRetryingStore(store, config.MemoryRetries, config.MemoryRetryBackoff),
		config:  config,
		logger:  logger.GetGlobalLogger().WithComponent("reconciler"),
		seen:    make(map[string]*models.Transaction),
	}, nil
}

// RosterLoadResult reports what happened while loading a roster.
type RosterLoadResult struct {
	Loaded  int                  `json:"loaded"`
	Skipped []SkippedTransaction `json:"skipped,omitempty"`
}

// LoadRoster validates and loads the tenant roster. Invalid entries are
// skipped and reported rather than failing the whole load, so one bad row
// in a roster export does not block reconciliation.
func (e *Engine) LoadRoster(entries []*models.RosterEntry) (*RosterLoadResult, error) {
	result := &RosterLoadResult{}

	valid := make([]*models.RosterEntry, 0, len(entries))
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			e.logger.WithError(err).WithField("index", i).Warn("Skipping invalid roster entry")
			result.Skipped = append(result.Skipped, SkippedTransaction{
				Index:  i,
				Reason: err.Error(),
			})
			continue
		}
		valid = append(valid, entry)
	}

	if err := e.matcher.LoadRoster(valid); err != nil {
		return nil, errors.ValidationError(errors.CodeDuplicateID, "roster", nil, err)
	}

	result.Loaded = len(valid)
	e.logger.WithFields(logger.Fields{
		"loaded":  result.Loaded,
		"skipped": len(result.Skipped),
	}).Info("Roster loaded")

	return result, nil
}

// Reconcile matches a batch of statement transactions against the loaded
// roster. Decisions come back in input order regardless of worker count.
// Memory store failures are logged and degrade individual transactions to
// cascade-only matching; they never fail the batch.
func (e *Engine) Reconcile(ctx context.Context, transactions []*models.Transaction) (*BatchResult, error) {
	if e.matcher.RosterSize() == 0 {
		return nil, errors.MatchingError(errors.CodeRosterNotLoaded, "reconcile", nil)
	}

	startTime := time.Now()
	result := &BatchResult{
		TiedCandidates: make(map[string][]string),
	}

	accepted := make([]*models.Transaction, 0, len(transactions))
	for i, tx := range transactions {
		if e.config.ValidateInputs {
			if err := tx.Validate(); err != nil {
				e.logger.WithError(err).WithField("index", i).Warn("Skipping invalid transaction")
				result.Skipped = append(result.Skipped, SkippedTransaction{
					Index:         i,
					TransactionID: tx.TransactionID,
					Reason:        err.Error(),
				})
				continue
			}
		}
		accepted = append(accepted, tx)
		e.remember(tx)
	}

	var progress *logger.ProgressTracker
	if e.config.ProgressInterval > 0 {
		progress = logger.NewProgressTracker("reconcile", int64(len(accepted)), e.config.ProgressInterval, e.logger)
	}

	resolutions := make([]*matcher.Resolution, len(accepted))
	if e.config.Workers > 1 {
		e.reconcileConcurrent(ctx, accepted, resolutions, progress)
	} else {
		for i, tx := range accepted {
			resolutions[i] = e.reconcileOne(ctx, tx)
			if progress != nil {
				progress.Increment()
			}
		}
	}

	result.Decisions = make([]*models.MatchDecision, len(resolutions))
	for i, resolution := range resolutions {
		result.Decisions[i] = resolution.Decision
		if len(resolution.TiedTenantIDs) > 0 {
			result.TiedCandidates[resolution.Decision.TransactionID] = resolution.TiedTenantIDs
		}
	}

	result.Summary = NewBatchSummary(result.Decisions)
	for i, tx := range accepted {
		result.Summary.addAmounts(result.Decisions[i], tx.Amount)
	}
	result.Duration = time.Since(startTime)

	if progress != nil {
		progress.Complete()
	}
	e.logger.WithFields(logger.Fields{
		"total":          result.Summary.Total,
		"auto_confirmed": result.Summary.AutoConfirmed,
		"needs_review":   result.Summary.NeedsReview,
		"unmatched":      result.Summary.Unmatched,
		"duration":       result.Duration.String(),
	}).Info("Batch reconciled")

	return result, nil
}

// reconcileConcurrent fans the batch out over a bounded worker pool. Each
// slot in resolutions belongs to exactly one goroutine, so no result lock
// is needed.
func (e *Engine) reconcileConcurrent(ctx context.Context, transactions []*models.Transaction, resolutions []*matcher.Resolution, progress *logger.ProgressTracker) {
	semaphore := make(chan struct{}, e.config.Workers)
	var wg sync.WaitGroup

	for i, tx := range transactions {
		wg.Add(1)
		go func(index int, transaction *models.Transaction) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resolutions[index] = e.reconcileOne(ctx, transaction)
			if progress != nil {
				progress.Increment()
			}
		}(i, tx)
	}

	wg.Wait()
}

// reconcileOne runs the full decision pipeline for a single transaction.
func (e *Engine) reconcileOne(ctx context.Context, tx *models.Transaction) *matcher.Resolution {
	if !tx.IsCredit() {
		e.logger.WithField("transaction_id", tx.TransactionID).Debug("Debit transaction, not reconciled")
		return unmatchedResolution(tx.TransactionID)
	}

	normalized := normalizer.Normalize(tx.PayerName)
	if normalized == "" {
		e.logger.WithField("transaction_id", tx.TransactionID).Debug("Payer name empty after normalization")
		return unmatchedResolution(tx.TransactionID)
	}

	memoryTenantID := e.lookupMemory(ctx, tx.TransactionID, normalized)

	candidates := e.matcher.FindCandidates(normalized)
	return e.matcher.Resolve(tx.TransactionID, memoryTenantID, candidates, tx.Amount)
}

// lookupMemory consults the mapping store and degrades to no-hit on failure.
// A remembered tenant that is no longer on the roster is also treated as a
// miss; the mapping may predate the current roster.
func (e *Engine) lookupMemory(ctx context.Context, transactionID, normalized string) string {
	tenantID, found, err := e.store.Lookup(ctx, normalized)
	if err != nil {
		e.logger.WithError(err).WithField("transaction_id", transactionID).
			Warn("Mapping store lookup failed, falling back to matching strategies")
		return ""
	}
	if !found {
		return ""
	}

	if _, ok := e.matcher.RosterEntry(tenantID); !ok {
		e.logger.WithFields(logger.Fields{
			"transaction_id": transactionID,
			"tenant_id":      tenantID,
		}).Warn("Remembered tenant not on current roster, ignoring mapping")
		return ""
	}

	return tenantID
}

func unmatchedResolution(transactionID string) *matcher.Resolution {
	return &matcher.Resolution{
		Decision: &models.MatchDecision{
			TransactionID: transactionID,
			Status:        models.StatusUnmatched,
			StrategyUsed:  models.StrategyNone,
		},
	}
}

// Confirm records a human confirmation that a reconciled transaction belongs
// to the given tenant. The payer name is remembered so future batches
// resolve it from memory.
func (e *Engine) Confirm(ctx context.Context, transactionID, tenantID string) error {
	return e.applyHumanDecision(ctx, transactionID, tenantID, "confirm")
}

// Override records a human correction assigning a reconciled transaction to
// a different tenant than the engine suggested. The stored mapping replaces
// any earlier one for the same payer name.
func (e *Engine) Override(ctx context.Context, transactionID, tenantID string) error {
	return e.applyHumanDecision(ctx, transactionID, tenantID, "override")
}

func (e *Engine) applyHumanDecision(ctx context.Context, transactionID, tenantID, action string) error {
	tx, ok := e.lookupSeen(transactionID)
	if !ok {
		return errors.ValidationError(errors.CodeMissingField, "transaction_id", transactionID, nil).
			WithSuggestion("reconcile the batch containing this transaction first")
	}

	if _, ok := e.matcher.RosterEntry(tenantID); !ok {
		return errors.MatchingError(errors.CodeUnknownTenant, action, nil).
			WithContext("tenant_id", tenantID)
	}

	if err := e.RecordMapping(ctx, tx.PayerName, tenantID); err != nil {
		return err
	}

	e.logger.WithFields(logger.Fields{
		"transaction_id": transactionID,
		"tenant_id":      tenantID,
		"action":         action,
	}).Info("Human decision recorded")

	return nil
}

// RecordMapping persists a manual payer-name-to-tenant mapping. Exposed for
// callers that know the payer name directly rather than a transaction id.
func (e *Engine) RecordMapping(ctx context.Context, payerName, tenantID string) error {
	normalized := normalizer.Normalize(payerName)
	if normalized == "" {
		return errors.ValidationError(errors.CodeMissingField, "payer_name", payerName, nil).
			WithSuggestion("the payer name is empty after normalization and cannot be remembered")
	}

	if err := e.store.Record(ctx, normalized, tenantID, models.MappingCreatedManual); err != nil {
		return errors.MemoryError(errors.CodeStoreUnavailable, "record", err)
	}
	return nil
}

// SuggestMatches returns ranked candidates for a raw payer name, for review
// tooling. The name is normalized here so callers pass it as printed on the
// statement.
func (e *Engine) SuggestMatches(payerName string, topN int) []matcher.Suggestion {
	return e.matcher.SuggestMatches(normalizer.Normalize(payerName), topN)
}

// MatchingConfig returns a copy of the active matching configuration
func (e *Engine) MatchingConfig() *matcher.MatchingConfig {
	return e.matcher.Config.Clone()
}

// RosterEntry returns the loaded roster entry for a tenant ID
func (e *Engine) RosterEntry(tenantID string) (*models.RosterEntry, bool) {
	return e.matcher.RosterEntry(tenantID)
}

func (e *Engine) remember(tx *models.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen[tx.TransactionID] = tx
}

func (e *Engine) lookupSeen(transactionID string) (*models.Transaction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tx, ok := e.seen[strings.TrimSpace(transactionID)]
	return tx, ok
}

// ExpectedTotal sums the expected amounts of loaded roster entries that have
// one, for summary reporting.
func ExpectedTotal(entries []*models.RosterEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if entry.HasExpectedAmount() {
			total = total.Add(entry.ExpectedAmount)
		}
	}
	return total
}
