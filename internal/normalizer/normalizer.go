// Package normalizer canonicalizes raw Hebrew and Latin payer names so that
// the same person spelled differently by the bank and the roster compares
// equal everywhere else in the engine.
//
// Normalization is deterministic and idempotent. Its output is a comparison
// key only; it is never shown to a human.
package normalizer

import (
	"strings"
	"unicode"
)

// finalForms maps Hebrew final letters to their standard forms.
// Final letters are positional variants of the same letter and must compare
// equal regardless of word position, so folding happens before any other
// comparison.
var finalForms = map[rune]rune{
	'ך': 'כ',
	'ם': 'מ',
	'ן': 'נ',
	'ף': 'פ',
	'ץ': 'צ',
}

// titleTokens are honorifics banks prepend to payer names. Compared after
// punctuation stripping, so "גב'" and "גב" both match.
var titleTokens = map[string]bool{
	"מר":    true,
	"גב":    true,
	"גברת":  true,
	"דר":    true,
	"משפחת": true,
	"mr":    true,
	"mrs":   true,
	"ms":    true,
	"dr":    true,
}

// strippedRunes are punctuation characters that are never part of a name:
// ASCII and Hebrew quotation marks (geresh/gershayim) and sentence
// punctuation. Hyphens are handled separately because they may join a
// compound given name.
var strippedRunes = map[rune]bool{
	'.':  true,
	',':  true,
	'\'': true,
	'"':  true,
	'׳':  true,
	'״':  true,
	'`':  true,
	':':  true,
	';':  true,
	'(':  true,
	')':  true,
	'/':  true,
	'\\': true,
	'*':  true,
}

// Normalize canonicalizes a raw payer or tenant name:
//
//  1. Surrounding whitespace is trimmed and internal runs collapsed.
//  2. Hebrew final letters fold to their standard forms.
//  3. Titles and name-external punctuation are stripped. Hyphens standing
//     alone between words are separators and dropped; hyphens inside a word
//     join a compound given name and are kept.
//  4. Latin characters are lower-cased (Hebrew has no case).
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	folded := strings.Map(func(r rune) rune {
		if std, ok := finalForms[r]; ok {
			return std
		}
		return r
	}, raw)

	var kept []string
	for _, token := range strings.Fields(folded) {
		token = stripToken(token)
		if token == "" {
			continue
		}
		if titleTokens[strings.ToLower(token)] {
			continue
		}
		kept = append(kept, strings.ToLower(token))
	}

	return strings.Join(kept, " ")
}

// stripToken removes punctuation from a single token. A token that is only
// hyphens was a word separator and strips to nothing; interior hyphens with
// letters on both sides survive.
func stripToken(token string) string {
	var b strings.Builder
	runes := []rune(token)
	for i, r := range runes {
		if strippedRunes[r] {
			continue
		}
		if r == '-' || r == '–' {
			if i == 0 || i == len(runes)-1 {
				continue
			}
			b.WriteRune('-')
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}

// Tokens returns the whitespace-separated tokens of an already normalized
// name. Matching strategies share this so token handling stays consistent.
func Tokens(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
