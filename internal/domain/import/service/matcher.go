package service

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	subsrepo "github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

// Minimum similarity for the fuzzy fallback to attach a line.
const fuzzyMatchThreshold = 85

// SubscriptionMatcher attaches statement lines to known subscriptions.
// Subscription names are compiled into an Aho-Corasick automaton so every
// line is checked against all names in one pass, with a Levenshtein
// fallback for misspelled merchants.
type SubscriptionMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string    // normalized names, same order as the automaton
	subIDs   []uuid.UUID // subscription for each pattern
}

// NewSubscriptionMatcher builds a matcher over the user's subscriptions.
// Cancelled subscriptions are included, historical statements may still
// carry their charges.
func NewSubscriptionMatcher(subs []*subsrepo.Subscription) *SubscriptionMatcher {
	m := &SubscriptionMatcher{}

	seen := make(map[string]bool, len(subs))
	for _, sub := range subs {
		key := matchKey(sub.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		m.patterns = append(m.patterns, key)
		m.subIDs = append(m.subIDs, sub.ID)
	}

	if len(m.patterns) > 0 {
		bytePatterns := make([][]byte, len(m.patterns))
		for i, p := range m.patterns {
			bytePatterns[i] = []byte(p)
		}
		m.matcher = ahocorasick.NewMatcher(bytePatterns)
	}

	return m
}

// Match resolves a merchant name to a subscription. When several names
// appear in the text the longest one wins.
func (m *SubscriptionMatcher) Match(description string) (uuid.UUID, bool) {
	if len(m.patterns) == 0 {
		return uuid.Nil, false
	}

	key := matchKey(description)
	if key == "" {
		return uuid.Nil, false
	}

	best := -1
	for _, idx := range m.matcher.Match([]byte(key)) {
		if idx < 0 || idx >= len(m.patterns) {
			continue
		}
		if best == -1 || len(m.patterns[idx]) > len(m.patterns[best]) {
			best = idx
		}
	}
	if best >= 0 {
		return m.subIDs[best], true
	}

	bestScore := 0
	for i, pattern := range m.patterns {
		if score := similarity(key, pattern); score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best >= 0 && bestScore >= fuzzyMatchThreshold {
		return m.subIDs[best], true
	}

	return uuid.Nil, false
}

// PatternCount returns the number of distinct subscription names loaded.
func (m *SubscriptionMatcher) PatternCount() int {
	return len(m.patterns)
}

// similarity scores two normalized names 0-100: exact match, then
// containment weighted by length ratio, then Levenshtein distance.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		shorter, longer := len(a), len(b)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return 75 + 25*shorter/longer
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	if dist > maxLen {
		return 0
	}
	return 100 * (maxLen - dist) / maxLen
}

// matchKey uppercases and collapses whitespace so names compare stably.
func matchKey(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
