package parsers

import (
	"encoding/csv"
	"io"
	"os"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/pkg/errors"
	"building-payment-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
)

// rosterAliases maps roster fields to the header spellings seen in building
// committee exports.
var rosterAliases = map[string][]string{
	"tenant_id":       {"tenant_id", "id", "מזהה"},
	"display_name":    {"display_name", "name", "שם", "שם דייר"},
	"full_name":       {"full_name", "שם מלא"},
	"expected_amount": {"expected_amount", "amount", "סכום", "סכום צפוי"},
	"apartment":       {"apartment", "apartment_number", "דירה"},
}

// RosterParserConfig configures roster CSV parsing
type RosterParserConfig struct {
	Delimiter rune `json:"delimiter"`
}

// DefaultRosterParserConfig returns the default roster parser configuration
func DefaultRosterParserConfig() *RosterParserConfig {
	return &RosterParserConfig{Delimiter: ','}
}

// RosterParser parses tenant roster CSV files
type RosterParser struct {
	config *RosterParserConfig
	logger logger.Logger
}

// NewRosterParser creates a roster parser
func NewRosterParser(config *RosterParserConfig) *RosterParser {
	if config == nil {
		config = DefaultRosterParserConfig()
	}
	return &RosterParser{
		config: config,
		logger: parserLogger("roster_parser"),
	}
}

// ParseRoster reads roster entries from a CSV file. Rows with a bad amount
// keep the entry with a zero expected amount; rows missing the identifying
// fields are counted as errors and skipped.
func (rp *RosterParser) ParseRoster(filePath string) ([]*models.RosterEntry, *ParseStats, error) {
	rp.logger.WithField("file_path", filePath).Debug("Parsing roster file")

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer file.Close()

	return rp.parse(file, filePath)
}

func (rp *RosterParser) parse(r io.Reader, filePath string) ([]*models.RosterEntry, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = rp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	stats := NewParseStats()

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, stats, errors.ParseError(errors.CodeInvalidFormat, filePath, 0, "headers", "", err).
				WithSuggestion("the roster file is empty")
		}
		return nil, stats, errors.ParseError(errors.CodeInvalidFormat, filePath, 1, "headers", "", err)
	}

	hm := buildHeaderMap(headers, rosterAliases)
	for _, required := range []string{"tenant_id", "display_name"} {
		if !hm.has(required) {
			return nil, stats, errors.ParseError(errors.CodeMissingColumn, filePath, 1, required, "", nil)
		}
	}

	var entries []*models.RosterEntry
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			stats.AddError(row, "record", "", "unreadable row", err)
			continue
		}
		stats.TotalRows++

		tenantID := hm.get(record, "tenant_id")
		displayName := hm.get(record, "display_name")
		if tenantID == "" || displayName == "" {
			stats.AddError(row, "tenant_id", tenantID, "missing tenant id or display name", nil)
			continue
		}

		amount := decimal.Zero
		if raw := hm.get(record, "expected_amount"); raw != "" {
			amount, err = models.ParseDecimalFromString(raw)
			if err != nil {
				stats.AddError(row, "expected_amount", raw, "invalid amount, treating as unset", err)
				amount = decimal.Zero
			}
		}

		entries = append(entries, models.NewRosterEntry(
			tenantID,
			displayName,
			hm.get(record, "full_name"),
			amount,
			hm.get(record, "apartment"),
		))
		stats.RecordsParsed++
	}

	rp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"stats":     stats.String(),
	}).Info("Roster parsed")

	return entries, stats, nil
}
