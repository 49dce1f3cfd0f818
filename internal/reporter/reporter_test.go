package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/reconciler"
)

type staticNamer map[string]string

func (n staticNamer) RosterEntry(tenantID string) (*models.RosterEntry, bool) {
	name, ok := n[tenantID]
	if !ok {
		return nil, false
	}
	return &models.RosterEntry{TenantID: tenantID, DisplayName: name}, true
}

func createTestResult() *reconciler.BatchResult {
	decisions := []*models.MatchDecision{
		{TransactionID: "tx-1", TenantID: "t-001", Confidence: 100, Status: models.StatusAutoConfirmed, StrategyUsed: models.StrategyExact},
		{TransactionID: "tx-2", TenantID: "t-002", Confidence: 82, Status: models.StatusNeedsReview, StrategyUsed: models.StrategyFuzzy},
		{TransactionID: "tx-3", Confidence: 100, Status: models.StatusNeedsReview, StrategyUsed: models.StrategyExact},
		{TransactionID: "tx-4", Status: models.StatusUnmatched, StrategyUsed: models.StrategyNone},
	}

	return &reconciler.BatchResult{
		Decisions: decisions,
		TiedCandidates: map[string][]string{
			"tx-3": {"t-003", "t-004"},
		},
		Summary:  reconciler.NewBatchSummary(decisions),
		Duration: 25 * time.Millisecond,
	}
}

func createTestReporter(t *testing.T, format OutputFormat) *Reporter {
	t.Helper()

	config := DefaultReportConfig()
	config.Format = format

	reporter, err := NewReporter(config, staticNamer{
		"t-001": "יעקב כהן",
		"t-002": "שרה לוי",
	})
	if err != nil {
		t.Fatalf("NewReporter failed: %v", err)
	}
	return reporter
}

func TestConsoleReport(t *testing.T) {
	reporter := createTestReporter(t, FormatConsole)

	var buf bytes.Buffer
	if err := reporter.WriteReport(&buf, createTestResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"4 transactions: 1 auto-confirmed, 2 need review, 1 unmatched",
		"Needs review:",
		"tx-2",
		"שרה לוי",
		"[tied: t-003, t-004]",
		"Unmatched:",
		"tx-4",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q:\n%s", want, output)
		}
	}

	// Auto-confirmed decisions only counted by default.
	if strings.Contains(output, "Auto-confirmed:") {
		t.Error("auto-confirmed section should be omitted by default")
	}
}

func TestConsoleReportIncludeAutoConfirmed(t *testing.T) {
	config := DefaultReportConfig()
	config.IncludeAutoConfirmed = true

	reporter, err := NewReporter(config, nil)
	if err != nil {
		t.Fatalf("NewReporter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := reporter.WriteReport(&buf, createTestResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Auto-confirmed:") {
		t.Error("expected auto-confirmed section")
	}
}

func TestJSONReport(t *testing.T) {
	reporter := createTestReporter(t, FormatJSON)

	var buf bytes.Buffer
	if err := reporter.WriteReport(&buf, createTestResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	var decoded reconciler.BatchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Decisions) != 4 {
		t.Errorf("decisions = %d, want 4", len(decoded.Decisions))
	}
	if decoded.Summary.AutoConfirmed != 1 {
		t.Errorf("summary auto_confirmed = %d, want 1", decoded.Summary.AutoConfirmed)
	}
}

func TestCSVReport(t *testing.T) {
	reporter := createTestReporter(t, FormatCSV)

	var buf bytes.Buffer
	if err := reporter.WriteReport(&buf, createTestResult()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d, want header + 4 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "transaction_id,") {
		t.Errorf("missing header row: %s", lines[0])
	}
	if !strings.Contains(lines[1], "auto_confirmed") {
		t.Errorf("row 1 = %s", lines[1])
	}
	if !strings.Contains(lines[2], "שרה לוי") {
		t.Errorf("row 2 should include tenant name: %s", lines[2])
	}
}

func TestInvalidFormat(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = OutputFormat("xml")

	if _, err := NewReporter(config, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
