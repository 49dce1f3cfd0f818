// Package parsers reads the two input files of a reconciliation run: the
// tenant roster (CSV) and the bank statement export (XLSX).
//
// Israeli bank exports are messy in predictable ways: Hebrew column headers,
// day-first dates, amounts with thousand separators, fee and summary rows
// mixed in with payments, and payer names buried inside transaction
// descriptions. The statement parser deals with all of that so the matching
// engine only ever sees clean transactions.
package parsers

import (
	"fmt"
	"strings"

	"building-payment-reconciler/pkg/logger"
)

// ParseError records one row that could not be parsed
type ParseError struct {
	Row     int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at row %d (%s='%s'): %s: %v",
			e.Row, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at row %d (%s='%s'): %s",
		e.Row, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	TotalRows     int
	RecordsParsed int
	FilteredRows  int
	ErrorCount    int
	Errors        []*ParseError
}

// NewParseStats creates a new ParseStats instance
func NewParseStats() *ParseStats {
	return &ParseStats{
		Errors: make([]*ParseError, 0),
	}
}

// AddError records a row-level error
func (ps *ParseStats) AddError(row int, field, value, message string, err error) {
	ps.Errors = append(ps.Errors, &ParseError{
		Row:     row,
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	})
	ps.ErrorCount++
}

// HasErrors returns true if there were any parsing errors
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("%d rows, %d records parsed, %d filtered, %d errors",
		ps.TotalRows, ps.RecordsParsed, ps.FilteredRows, ps.ErrorCount)
}

// GetSampleErrors returns up to maxSamples error messages for logging
func (ps *ParseStats) GetSampleErrors(maxSamples int) []string {
	if len(ps.Errors) == 0 {
		return nil
	}

	limit := len(ps.Errors)
	if maxSamples > 0 && maxSamples < limit {
		limit = maxSamples
	}

	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}

// headerMap resolves column positions from a header row using per-field
// alias lists, so both Hebrew and English exports work without
// configuration.
type headerMap map[string]int

// buildHeaderMap matches each field's aliases against the header row. The
// first alias hit per field wins; unmatched fields are simply absent.
func buildHeaderMap(headers []string, aliases map[string][]string) headerMap {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.ToLower(strings.TrimSpace(h))
	}

	hm := make(headerMap)
	for field, names := range aliases {
		for _, name := range names {
			for i, header := range cleaned {
				if header == strings.ToLower(name) {
					hm[field] = i
					break
				}
			}
			if _, ok := hm[field]; ok {
				break
			}
		}
	}
	return hm
}

// get returns the trimmed cell value for a mapped field, or "" when the
// field is unmapped or the row is short.
func (hm headerMap) get(record []string, field string) string {
	index, ok := hm[field]
	if !ok || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// has reports whether the header row contained the field
func (hm headerMap) has(field string) bool {
	_, ok := hm[field]
	return ok
}

func parserLogger(component string) logger.Logger {
	return logger.GetGlobalLogger().WithComponent(component)
}
