package matcher

import (
	"fmt"
	"sort"
	"strings"

	"building-payment-reconciler/internal/models"
	"building-payment-reconciler/internal/normalizer"
)

// indexedEntry holds one roster entry with its names normalized once at
// roster-load time, so the per-transaction path never re-normalizes.
type indexedEntry struct {
	entry *models.RosterEntry

	// names are the distinct normalized comparison names: the matching name
	// (full name, falling back to display name) first, then the display
	// name when it differs.
	names []string

	// tokens[i] are the tokens of names[i]
	tokens [][]string

	// multisetKeys[i] is the order-independent token key of names[i]
	multisetKeys []string
}

// RosterIndex is the read-only normalized roster the cascade matches
// against. Built once per roster; safe for concurrent readers.
type RosterIndex struct {
	entries  []indexedEntry
	byTenant map[string]*models.RosterEntry

	// exactNames maps a normalized name to the tenant ids carrying it.
	// Duplicate normalized names across tenants are preserved so ambiguity
	// can be detected instead of silently resolved.
	exactNames map[string][]string
}

// BuildRosterIndex normalizes every roster entry and builds the lookup
// structures. Entries must already be validated; within one roster tenant
// ids must be unique.
func BuildRosterIndex(entries []*models.RosterEntry) (*RosterIndex, error) {
	index := &RosterIndex{
		byTenant:   make(map[string]*models.RosterEntry, len(entries)),
		exactNames: make(map[string][]string),
	}

	for _, entry := range entries {
		if _, exists := index.byTenant[entry.TenantID]; exists {
			return nil, fmt.Errorf("duplicate tenant ID in roster: %s", entry.TenantID)
		}
		index.byTenant[entry.TenantID] = entry

		indexed := indexedEntry{entry: entry}
		for _, raw := range []string{entry.MatchingName(), entry.DisplayName} {
			normalized := normalizer.Normalize(raw)
			if normalized == "" || containsString(indexed.names, normalized) {
				continue
			}
			tokens := normalizer.Tokens(normalized)
			indexed.names = append(indexed.names, normalized)
			indexed.tokens = append(indexed.tokens, tokens)
			indexed.multisetKeys = append(indexed.multisetKeys, multisetKey(tokens))

			if !containsString(index.exactNames[normalized], entry.TenantID) {
				index.exactNames[normalized] = append(index.exactNames[normalized], entry.TenantID)
			}
		}

		index.entries = append(index.entries, indexed)
	}

	return index, nil
}

// Entry returns the roster entry for a tenant id
func (ri *RosterIndex) Entry(tenantID string) (*models.RosterEntry, bool) {
	entry, ok := ri.byTenant[tenantID]
	return entry, ok
}

// Size returns the number of indexed roster entries
func (ri *RosterIndex) Size() int {
	return len(ri.entries)
}

// multisetKey builds an order-independent key for a token list. Equal keys
// mean equal token multisets.
func multisetKey(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
