// Package match pairs markets across platforms. A cheap pre-filter (date
// proximity, keyword overlap, outcome cardinality) trims the candidate set
// before a fuzzy title ranker picks the best counterpart, so the expensive
// scoring runs on a small fraction of the cross product.
package match

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscan/internal/domain"
)

// stopWords are removed from titles before keyword comparison.
var stopWords = map[string]struct{}{
	"will": {}, "the": {}, "be": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "for": {}, "of": {}, "by": {}, "or": {},
}

// Config tunes the matcher.
type Config struct {
	// Threshold is the minimum similarity in [0,1] for a match.
	Threshold float64
	// MaxDateDiffDays bounds |endDate(a) - endDate(b)| when both are set.
	MaxDateDiffDays int
	// MinRunLength is the minimum shared character run the ranker counts.
	MinRunLength int
}

// DefaultConfig returns the standard matcher tuning.
func DefaultConfig() Config {
	return Config{Threshold: 0.60, MaxDateDiffDays: 30, MinRunLength: 3}
}

// Matcher finds the best cross-platform counterpart for each market.
type Matcher struct {
	cfg    Config
	ranker Ranker
	logger *slog.Logger
}

// NewMatcher creates a matcher.
func NewMatcher(cfg Config, logger *slog.Logger) *Matcher {
	return &Matcher{
		cfg: cfg,
		ranker: Ranker{
			MinRunLength: cfg.MinRunLength,
			MaxDistance:  1 - cfg.Threshold,
		},
		logger: logger.With(slog.String("component", "matcher")),
	}
}

// FindMatches returns at most one match per element of listA: the candidate
// from listB that survives the pre-filter and ranks closest by title.
func (m *Matcher) FindMatches(listA, listB []domain.StandardMarket) []domain.MarketMatch {
	keywordsB := make([]map[string]struct{}, len(listB))
	for i := range listB {
		keywordsB[i] = keywords(listB[i].Title)
	}

	var matches []domain.MarketMatch
	for i := range listA {
		a := &listA[i]
		kwA := keywords(a.Title)

		var candidates []domain.StandardMarket
		var titles []string
		for j := range listB {
			if !m.prefilter(a, &listB[j], kwA, keywordsB[j]) {
				continue
			}
			candidates = append(candidates, listB[j])
			titles = append(titles, listB[j].Title)
		}
		if len(candidates) == 0 {
			continue
		}

		ranked := m.ranker.Rank(a.Title, titles)
		if len(ranked) == 0 {
			continue
		}

		best := ranked[0]
		score := int(math.Round((1 - best.Distance) * 100))
		matches = append(matches, domain.MarketMatch{
			MarketA:   *a,
			MarketB:   candidates[best.Index],
			Score:     score,
			MatchedBy: domain.MatchFuzzy,
		})
		m.logger.Debug("matched markets",
			slog.String("title_a", a.Title),
			slog.String("title_b", candidates[best.Index].Title),
			slog.Int("score", score))
	}
	return matches
}

// prefilter applies the cheap rejection steps. A missing endDate on either
// side never rejects.
func (m *Matcher) prefilter(a, b *domain.StandardMarket, kwA, kwB map[string]struct{}) bool {
	if len(a.Outcomes) != len(b.Outcomes) {
		return false
	}
	if a.EndDate != nil && b.EndDate != nil {
		diff := a.EndDate.Sub(*b.EndDate)
		if diff < 0 {
			diff = -diff
		}
		if diff > time.Duration(m.cfg.MaxDateDiffDays)*24*time.Hour {
			return false
		}
	}
	for kw := range kwA {
		if _, ok := kwB[kw]; ok {
			return true
		}
	}
	return false
}

// keywords extracts the lowercased tokens of length > 2 that are not stop
// words, after folding punctuation into whitespace.
func keywords(title string) map[string]struct{} {
	kws := make(map[string]struct{})
	for _, tok := range strings.Fields(normalizeTitle(title)) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kws[tok] = struct{}{}
	}
	return kws
}
