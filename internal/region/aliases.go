// Package region maps free-text queries to canonical region identifiers
// using a static alias table. The table is read-only after construction.
package region

import (
	"sort"
	"strings"
)

// defaultAliases is the built-in city table. Each canonical id maps to the
// surface strings that refer to it, including informal nicknames.
var defaultAliases = map[string][]string{
	"北京": {"北京", "北京市", "首都"},
	"上海": {"上海", "上海市", "魔都"},
	"广州": {"广州", "广州市", "羊城"},
	"深圳": {"深圳", "深圳市", "鹏城"},
	"杭州": {"杭州", "杭州市"},
	"成都": {"成都", "成都市", "蓉城"},
	"重庆": {"重庆", "重庆市", "山城"},
	"西安": {"西安", "西安市", "长安"},
	"南京": {"南京", "南京市", "金陵"},
	"武汉": {"武汉", "武汉市", "江城"},
}

type aliasEntry struct {
	alias     string
	canonical string
}

// AliasTable resolves surface strings to canonical region ids.
// It is immutable after New and safe for concurrent use.
type AliasTable struct {
	entries []aliasEntry
}

// New builds an alias table from the built-in city table merged with extra.
// Extra entries extend or override the built-in aliases for the same
// canonical id.
func New(extra map[string][]string) *AliasTable {
	merged := make(map[string][]string, len(defaultAliases)+len(extra))
	for id, aliases := range defaultAliases {
		merged[id] = append([]string(nil), aliases...)
	}
	for id, aliases := range extra {
		merged[id] = append(merged[id], aliases...)
	}

	t := &AliasTable{}
	seen := make(map[string]struct{})
	for id, aliases := range merged {
		for _, a := range aliases {
			a = strings.TrimSpace(a)
			if a == "" {
				continue
			}
			key := id + "\x00" + a
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			t.entries = append(t.entries, aliasEntry{alias: a, canonical: id})
		}
	}

	// Longest alias first so the most specific surface form wins.
	// Ties break on the lexicographically smallest canonical id, then the
	// alias itself, so resolution order is fully deterministic.
	sort.Slice(t.entries, func(i, j int) bool {
		a, b := t.entries[i], t.entries[j]
		if len(a.alias) != len(b.alias) {
			return len(a.alias) > len(b.alias)
		}
		if a.canonical != b.canonical {
			return a.canonical < b.canonical
		}
		return a.alias < b.alias
	})

	return t
}

// Resolve returns the canonical id of the first alias contained in query,
// or "" when no alias matches.
func (t *AliasTable) Resolve(query string) string {
	if query == "" {
		return ""
	}
	for _, e := range t.entries {
		if strings.Contains(query, e.alias) {
			return e.canonical
		}
	}
	return ""
}

// Len returns the number of alias entries in the table.
func (t *AliasTable) Len() int {
	return len(t.entries)
}
