// Package reporter renders batch reconciliation results for humans and
// machines.
//
// Three formats are supported: console (review-oriented tabular output,
// grouped by decision status), JSON (full structured result), and CSV
// (one decision per row, for spreadsheets).
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// TenantNamer resolves tenant ids to display names for console output.
// Typically backed by the loaded roster.
type TenantNamer interface {
	RosterEntry(tenantID string) (*models.RosterEntry, bool)
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeAutoConfirmed lists auto-confirmed decisions in console
	// output instead of only counting them.
	IncludeAutoConfirmed bool `json:"include_auto_confirmed"`

	CSVDelimiter rune `json:"csv_delimiter"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:       FormatConsole,
		CSVDelimiter: ',',
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Reporter renders batch results in the configured format
type Reporter struct {
	config *ReportConfig
	namer  TenantNamer
}

// NewReporter creates a reporter. The namer may be nil; tenant ids are then
// printed without display names.
func NewReporter(config *ReportConfig, namer TenantNamer) (*Reporter, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Reporter{config: config, namer: namer}, nil
}

// WriteReport renders the batch result to w in the configured format
func (r *Reporter) WriteReport(w io.Writer, result *reconciler.BatchResult) error {
	switch r.config.Format {
	case FormatJSON:
		return r.writeJSON(w, result)
	case FormatCSV:
		return r.writeCSV(w, result)
	default:
		return r.writeConsole(w, result)
	}
}

func (r *Reporter) writeJSON(w io.Writer, result *reconciler.BatchResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func (r *Reporter) writeCSV(w io.Writer, result *reconciler.BatchResult) error {
	writer := csv.NewWriter(w)
	writer.Comma = r.config.CSVDelimiter

	if err := writer.Write([]string{"transaction_id", "tenant_id", "tenant_name", "confidence", "status", "strategy"}); err != nil {
		return err
	}

	for _, decision := range result.Decisions {
		record := []string{
			decision.TransactionID,
			decision.TenantID,
			r.tenantName(decision.TenantID),
			fmt.Sprintf("%.1f", decision.Confidence),
			decision.Status.String(),
			decision.StrategyUsed.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func (r *Reporter) writeConsole(w io.Writer, result *reconciler.BatchResult) error {
	var b strings.Builder

	b.WriteString("Reconciliation Report\n")
	b.WriteString("=====================\n\n")
	b.WriteString(result.Summary.String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Amounts: %s matched, %s unmatched\n",
		result.Summary.MatchedAmount.StringFixed(2), result.Summary.UnmatchedAmount.StringFixed(2)))

	if len(result.Summary.ByStrategy) > 0 {
		b.WriteString("\nBy strategy:\n")
		for _, strategy := range sortedStrategies(result.Summary.ByStrategy) {
			b.WriteString(fmt.Sprintf("  %-10s %d\n", strategy, result.Summary.ByStrategy[strategy]))
		}
	}

	review := decisionsWithStatus(result.Decisions, models.StatusNeedsReview)
	if len(review) > 0 {
		b.WriteString("\nNeeds review:\n")
		for _, decision := range review {
			b.WriteString("  " + r.formatDecision(decision))
			if tied := result.TiedCandidates[decision.TransactionID]; len(tied) > 0 {
				b.WriteString(fmt.Sprintf("  [tied: %s]", strings.Join(tied, ", ")))
			}
			b.WriteString("\n")
		}
	}

	unmatched := decisionsWithStatus(result.Decisions, models.StatusUnmatched)
	if len(unmatched) > 0 {
		b.WriteString("\nUnmatched:\n")
		for _, decision := range unmatched {
			b.WriteString(fmt.Sprintf("  %s\n", decision.TransactionID))
		}
	}

	if r.config.IncludeAutoConfirmed {
		confirmed := decisionsWithStatus(result.Decisions, models.StatusAutoConfirmed)
		if len(confirmed) > 0 {
			b.WriteString("\nAuto-confirmed:\n")
			for _, decision := range confirmed {
				b.WriteString("  " + r.formatDecision(decision) + "\n")
			}
		}
	}

	if len(result.Skipped) > 0 {
		b.WriteString("\nSkipped inputs:\n")
		for _, skipped := range result.Skipped {
			b.WriteString(fmt.Sprintf("  row %d (%s): %s\n", skipped.Index, skipped.TransactionID, skipped.Reason))
		}
	}

	b.WriteString(fmt.Sprintf("\nProcessed in %s\n", result.Duration))

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Reporter) formatDecision(decision *models.MatchDecision) string {
	name := r.tenantName(decision.TenantID)
	tenant := decision.TenantID
	if tenant == "" {
		tenant = "-"
	}
	if name != "" {
		tenant = fmt.Sprintf("%s (%s)", tenant, name)
	}
	return fmt.Sprintf("%-12s -> %-30s %5.1f  %s", decision.TransactionID, tenant, decision.Confidence, decision.StrategyUsed)
}

func (r *Reporter) tenantName(tenantID string) string {
	if r.namer == nil || tenantID == "" {
		return ""
	}
	entry, ok := r.namer.RosterEntry(tenantID)
	if !ok {
		return ""
	}
	return entry.DisplayName
}

func decisionsWithStatus(decisions []*models.MatchDecision, status models.MatchStatus) []*models.MatchDecision {
	var filtered []*models.MatchDecision
	for _, decision := range decisions {
		if decision.Status == status {
			filtered = append(filtered, decision)
		}
	}
	return filtered
}

func sortedStrategies(byStrategy map[models.MatchStrategy]int) []models.MatchStrategy {
	strategies := make([]models.MatchStrategy, 0, len(byStrategy))
	for strategy := range byStrategy {
		strategies = append(strategies, strategy)
	}
	sort.Slice(strategies, func(i, j int) bool {
		return strategies[i] < strategies[j]
	})
	return strategies
}
