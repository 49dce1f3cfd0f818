package matcher

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/normalizer"

	"github.com/agnivade/levenshtein"
)

// MatchingEngine matches normalized payer names against a roster using the
// strategy cascade. The engine itself is stateless per transaction; the only
// loaded state is the read-only roster index, so a single engine can serve
// concurrent callers.
type MatchingEngine struct {
	Config *MatchingConfig
	index  *RosterIndex
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &MatchingEngine{Config: config}
}

// LoadRoster normalizes the roster entries and builds the index. Called once
// per roster, not per transaction.
func (me *MatchingEngine) LoadRoster(entries []*models.RosterEntry) error {
	index, err := BuildRosterIndex(entries)
	if err != nil {
		return err
	}
	me.index = index
	return nil
}

// RosterSize returns the number of loaded roster entries
func (me *MatchingEngine) RosterSize() int {
	if me.index == nil {
		return 0
	}
	return me.index.Size()
}

// RosterEntry returns the loaded roster entry for a tenant id
func (me *MatchingEngine) RosterEntry(tenantID string) (*models.RosterEntry, bool) {
	if me.index == nil {
		return nil, false
	}
	return me.index.Entry(tenantID)
}

// FindCandidates runs the strategy cascade for an already normalized payer
// name. Strategies run in fixed precedence order and the first one producing
// candidates wins: a looser strategy must never steal a name an earlier,
// higher-precision strategy already resolved. Ties within the winning
// strategy are all returned so the resolver can flag the ambiguity.
func (me *MatchingEngine) FindCandidates(normalizedPayer string) []models.MatchCandidate {
	if normalizedPayer == "" || me.index == nil || me.index.Size() == 0 {
		return nil
	}

	strategies := []func(string) []models.MatchCandidate{
		me.exactCandidates,
		me.reversedCandidates,
		me.fuzzyCandidates,
		me.tokenCandidates,
	}

	for _, strategy := range strategies {
		if candidates := strategy(normalizedPayer); len(candidates) > 0 {
			return candidates
		}
	}

	return nil
}

// exactCandidates matches the payer name against normalized roster names
// verbatim.
func (me *MatchingEngine) exactCandidates(normalizedPayer string) []models.MatchCandidate {
	var candidates []models.MatchCandidate
	for _, tenantID := range me.index.exactNames[normalizedPayer] {
		candidates = append(candidates, models.MatchCandidate{
			TenantID: tenantID,
			Strategy: models.StrategyExact,
			RawScore: me.Config.ExactScore,
		})
	}
	return candidates
}

// reversedCandidates matches when the token multiset of the payer name
// equals the token multiset of a roster name, covering banks that emit
// "last first" where the roster says "first last".
func (me *MatchingEngine) reversedCandidates(normalizedPayer string) []models.MatchCandidate {
	payerKey := multisetKey(normalizer.Tokens(normalizedPayer))
	if payerKey == "" {
		return nil
	}

	var candidates []models.MatchCandidate
	for _, indexed := range me.index.entries {
		for _, key := range indexed.multisetKeys {
			if key == payerKey {
				candidates = append(candidates, models.MatchCandidate{
					TenantID: indexed.entry.TenantID,
					Strategy: models.StrategyReversed,
					RawScore: me.Config.ReversedScore,
				})
				break
			}
		}
	}
	return candidates
}

// fuzzyCandidates produces candidates whose normalized edit-distance
// similarity to a roster name meets the configured floor. Similarity is on
// a 0-100 scale: identical strings score 100, fully disjoint strings 0.
func (me *MatchingEngine) fuzzyCandidates(normalizedPayer string) []models.MatchCandidate {
	var candidates []models.MatchCandidate
	for _, indexed := range me.index.entries {
		best := 0.0
		for _, name := range indexed.names {
			if similarity := nameSimilarity(normalizedPayer, name); similarity > best {
				best = similarity
			}
		}

		if best >= me.Config.FuzzyMinSimilarity {
			candidates = append(candidates, models.MatchCandidate{
				TenantID: indexed.entry.TenantID,
				Strategy: models.StrategyFuzzy,
				RawScore: best,
			})
		}
	}
	return candidates
}

// tokenCandidates treats both names as unordered token sets and scores the
// fraction of roster-name tokens covered by payer tokens. A single-letter
// payer token counts as a valid abbreviation of a roster token starting with
// that letter ("י כהנ" covers "יוספ כהנ").
func (me *MatchingEngine) tokenCandidates(normalizedPayer string) []models.MatchCandidate {
	payerTokens := normalizer.Tokens(normalizedPayer)
	if len(payerTokens) == 0 {
		return nil
	}

	var candidates []models.MatchCandidate
	for _, indexed := range me.index.entries {
		best := 0.0
		bestMatched := 0
		for _, rosterTokens := range indexed.tokens {
			matched := countTokenMatches(payerTokens, rosterTokens)
			if matched == 0 {
				continue
			}
			score := float64(matched) / float64(len(rosterTokens)) * 100
			if score > 100 {
				score = 100
			}
			if score > best {
				best = score
				bestMatched = matched
			}
		}

		if bestMatched > 0 && best >= me.Config.TokenMinScore {
			candidates = append(candidates, models.MatchCandidate{
				TenantID: indexed.entry.TenantID,
				Strategy: models.StrategyToken,
				RawScore: best,
			})
		}
	}
	return candidates
}

// countTokenMatches counts payer tokens that are exact matches or valid
// single-letter abbreviations of roster tokens. Each roster token is
// consumed at most once so "יוספ יוספ" cannot double-count one roster token.
func countTokenMatches(payerTokens, rosterTokens []string) int {
	used := make([]bool, len(rosterTokens))
	matched := 0

	for _, payerToken := range payerTokens {
		for i, rosterToken := range rosterTokens {
			if used[i] {
				continue
			}
			if payerToken == rosterToken || isAbbreviation(payerToken, rosterToken) {
				used[i] = true
				matched++
				break
			}
		}
	}

	return matched
}

// isAbbreviation reports whether token is a single letter matching the first
// letter of full.
func isAbbreviation(token, full string) bool {
	if utf8.RuneCountInString(token) != 1 || utf8.RuneCountInString(full) <= 1 {
		return false
	}
	tokenRune, _ := utf8.DecodeRuneInString(token)
	fullRune, _ := utf8.DecodeRuneInString(full)
	return tokenRune == fullRune
}

// nameSimilarity computes normalized edit-distance similarity on a 0-100
// scale, measured in runes so Hebrew names are not penalized per byte.
func nameSimilarity(a, b string) float64 {
	if a == b {
		return 100
	}

	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}

	distance := levenshtein.ComputeDistance(a, b)
	similarity := (1 - float64(distance)/float64(maxLen)) * 100
	if similarity < 0 {
		return 0
	}
	return similarity
}

// Suggestion is one ranked candidate for manual review.
type Suggestion struct {
	TenantID    string               `json:"tenant_id"`
	DisplayName string               `json:"display_name"`
	Score       float64              `json:"score"`
	Strategy    models.MatchStrategy `json:"strategy"`
}

// SuggestMatches returns the top-N scored roster entries for a normalized
// payer name so a reviewer can pick among near misses. Unlike the cascade,
// every strategy runs and each tenant keeps its best score; precedence does
// not apply because suggestion lists are advisory, not decisions.
func (me *MatchingEngine) SuggestMatches(normalizedPayer string, topN int) []Suggestion {
	if normalizedPayer == "" || me.index == nil {
		return nil
	}
	if topN <= 0 {
		topN = me.Config.MaxSuggestions
	}

	bestByTenant := make(map[string]models.MatchCandidate)
	collect := func(candidates []models.MatchCandidate) {
		for _, candidate := range candidates {
			if existing, ok := bestByTenant[candidate.TenantID]; !ok || candidate.RawScore > existing.RawScore {
				bestByTenant[candidate.TenantID] = candidate
			}
		}
	}

	collect(me.exactCandidates(normalizedPayer))
	collect(me.reversedCandidates(normalizedPayer))
	collect(me.fuzzyCandidates(normalizedPayer))
	collect(me.tokenCandidates(normalizedPayer))

	suggestions := make([]Suggestion, 0, len(bestByTenant))
	for tenantID, candidate := range bestByTenant {
		entry, ok := me.index.Entry(tenantID)
		if !ok {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			TenantID:    tenantID,
			DisplayName: entry.DisplayName,
			Score:       candidate.RawScore,
			Strategy:    candidate.Strategy,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].TenantID < suggestions[j].TenantID
	})

	if len(suggestions) > topN {
		suggestions = suggestions[:topN]
	}
	return suggestions
}

// ValidateConfiguration validates the matching engine configuration
func (me *MatchingEngine) ValidateConfiguration() error {
	return me.Config.Validate()
}

// UpdateConfiguration replaces the matching configuration
func (me *MatchingEngine) UpdateConfiguration(config *MatchingConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	me.Config = config.Clone()
	return nil
}
