package parsers

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/pkg/errors"
	"building-payment-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// statementAliases maps statement fields to the column headers Israeli banks
// put on their Excel exports, plus English fallbacks.
var statementAliases = map[string][]string{
	"date":        {"תאריך פעילות", "תאריך", "date", "activity_date"},
	"reference":   {"אסמכתא", "reference", "reference_number"},
	"description": {"תאור פעולה", "תיאור פעולה", "תיאור", "description", "payer_name"},
	"credit":      {"זכות", "credit", "credit_amount"},
	"debit":       {"חובה", "debit", "debit_amount"},
	"balance":     {"יתרה", "balance"},
}

// bankNames are prefixes banks prepend to transfer descriptions. They are
// stripped when extracting the payer name.
var bankNames = []string{
	"הפועלים", "לאומי", "דיסקונט", "מזרחי", "בינלאומי",
	"פועלים", "איגוד", "מרכנתיל", "יהב", "אוצר החייל",
	"בנק", "Bank",
}

// feeKeywords mark rows that are bank fees or statement summary lines, not
// tenant payments.
var feeKeywords = []string{
	"מע\"מ", "עמלה", "עמלת", "דמי ניהול", "ניהול חשבון",
	"קנס", "אגרה", "בנקאות", "סה\"כ", "סה״כ", "סיכום",
}

// descriptionSeparator splits "bank name - payer name" descriptions. The
// whitespace is required so compound payer names like "בת-אל" stay intact.
var descriptionSeparator = regexp.MustCompile(`\s+-\s+`)

// StatementParserConfig configures bank statement parsing
type StatementParserConfig struct {
	// SheetName selects the worksheet; empty means the first sheet.
	SheetName string `json:"sheet_name"`

	// HeaderSearchRows bounds how far down the sheet the header row is
	// looked for. Bank exports often lead with account metadata rows.
	HeaderSearchRows int `json:"header_search_rows"`

	// KeepDebits includes outgoing transactions (as negative amounts)
	// instead of filtering them.
	KeepDebits bool `json:"keep_debits"`
}

// DefaultStatementParserConfig returns the default statement parser configuration
func DefaultStatementParserConfig() *StatementParserConfig {
	return &StatementParserConfig{
		HeaderSearchRows: 10,
	}
}

// StatementParser parses Israeli bank statement XLSX exports into
// transactions.
type StatementParser struct {
	config *StatementParserConfig
	logger logger.Logger
}

// NewStatementParser creates a statement parser
func NewStatementParser(config *StatementParserConfig) *StatementParser {
	if config == nil {
		config = DefaultStatementParserConfig()
	}
	return &StatementParser{
		config: config,
		logger: parserLogger("statement_parser"),
	}
}

// ParseStatement reads transactions from an XLSX bank statement. Fee and
// summary rows are filtered, and each kept row gets its payer name extracted
// from the transaction description.
func (sp *StatementParser) ParseStatement(filePath string) ([]*models.Transaction, *ParseStats, error) {
	sp.logger.WithField("file_path", filePath).Debug("Parsing statement file")

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, nil, errors.FileError(errors.CodeFileCorrupted, filePath, err).
			WithSuggestion("ensure the file is a valid XLSX export")
	}
	defer f.Close()

	sheetName := sp.config.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 0, "sheet", "", nil).
			WithSuggestion("the workbook contains no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 0, "sheet", sheetName, err)
	}

	stats := NewParseStats()

	headerRow, hm := sp.findHeaderRow(rows)
	if hm == nil {
		return nil, stats, errors.ParseError(errors.CodeMissingColumn, filePath, 0, "headers", "", nil).
			WithSuggestion("no recognizable header row found; expected columns like 'תאריך פעילות' and 'זכות'")
	}

	var transactions []*models.Transaction
	fileBase := filepath.Base(filePath)

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		stats.TotalRows++

		description := hm.get(row, "description")
		if description == "" {
			stats.FilteredRows++
			continue
		}
		if containsAny(description, feeKeywords) {
			stats.FilteredRows++
			continue
		}

		date, err := models.ParseTimeWithFormats(hm.get(row, "date"))
		if err != nil {
			stats.AddError(rowNum, "date", hm.get(row, "date"), "unparseable date", err)
			continue
		}

		amount, ok := sp.rowAmount(hm, row, rowNum, stats)
		if !ok {
			continue
		}
		if amount.IsNegative() && !sp.config.KeepDebits {
			stats.FilteredRows++
			continue
		}

		id := hm.get(row, "reference")
		if id == "" {
			id = fmt.Sprintf("%s#%d", fileBase, rowNum)
		}

		transactions = append(transactions, models.NewTransaction(
			id,
			extractPayerName(description),
			amount,
			date,
		))
		stats.RecordsParsed++
	}

	sp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"sheet":     sheetName,
		"stats":     stats.String(),
	}).Info("Statement parsed")

	return transactions, stats, nil
}

// findHeaderRow scans the leading rows for one that maps at least the
// description column and one amount column.
func (sp *StatementParser) findHeaderRow(rows [][]string) (int, headerMap) {
	limit := sp.config.HeaderSearchRows
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		hm := buildHeaderMap(rows[i], statementAliases)
		if hm.has("description") && (hm.has("credit") || hm.has("debit")) {
			return i, hm
		}
	}
	return 0, nil
}

// rowAmount computes the signed transaction amount: credits positive, debits
// negative. Rows with neither amount are filtered.
func (sp *StatementParser) rowAmount(hm headerMap, row []string, rowNum int, stats *ParseStats) (decimal.Decimal, bool) {
	parse := func(field string) (decimal.Decimal, bool, bool) {
		raw := hm.get(row, field)
		if raw == "" {
			return decimal.Zero, false, true
		}
		value, err := models.ParseDecimalFromString(raw)
		if err != nil {
			stats.AddError(rowNum, field, raw, "unparseable amount", err)
			return decimal.Zero, false, false
		}
		return value, !value.IsZero(), true
	}

	credit, hasCredit, ok := parse("credit")
	if !ok {
		return decimal.Zero, false
	}
	debit, hasDebit, ok := parse("debit")
	if !ok {
		return decimal.Zero, false
	}

	switch {
	case hasCredit:
		return credit, true
	case hasDebit:
		return debit.Neg(), true
	default:
		stats.FilteredRows++
		return decimal.Zero, false
	}
}

// extractPayerName pulls the payer out of a transaction description. Bank
// transfers typically read "bank name - payer name"; when no separator is
// present, known bank names are stripped instead.
func extractPayerName(description string) string {
	description = strings.Join(strings.Fields(description), " ")

	if descriptionSeparator.MatchString(description) {
		parts := descriptionSeparator.Split(description, 2)
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}

	cleaned := description
	for _, bank := range bankNames {
		cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, bank, ""))
	}
	return cleaned
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
