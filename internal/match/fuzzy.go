package match

import (
	"sort"
	"strings"
)

// RankResult is one scored candidate. Distance is normalized into [0,1],
// where 0 is an exact match after normalization.
type RankResult struct {
	Index    int
	Distance float64
}

// Ranker scores candidate strings against a query by coverage of shared
// character runs. It is location independent: a run counts wherever it
// appears in either string. Runs shorter than MinRunLength are ignored, and
// candidates with distance above MaxDistance are dropped.
type Ranker struct {
	MinRunLength int
	MaxDistance  float64
}

// NewRanker returns a ranker with the default thresholds: three-character
// minimum runs and a 0.40 distance cutoff.
func NewRanker() Ranker {
	return Ranker{MinRunLength: 3, MaxDistance: 0.40}
}

// Rank scores every candidate against query and returns the accepted results
// ascending by distance. Ties keep candidate input order.
func (r Ranker) Rank(query string, candidates []string) []RankResult {
	q := normalizeTitle(query)

	results := make([]RankResult, 0, len(candidates))
	for i, cand := range candidates {
		d := r.distance(q, normalizeTitle(cand))
		if d <= r.MaxDistance {
			results = append(results, RankResult{Index: i, Distance: d})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}

// distance computes 1 - coverage, where coverage is the fraction of the
// longer string covered by shared runs of at least MinRunLength characters.
func (r Ranker) distance(a, b string) float64 {
	if a == b {
		return 0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}

	matched := matchedRunLength(a, b, r.MinRunLength)
	return 1 - float64(matched)/float64(longest)
}

// matchedRunLength repeatedly extracts the longest common substring of at
// least minRun characters, removing it from both sides, and returns the total
// characters matched.
func matchedRunLength(a, b string, minRun int) int {
	total := 0
	for {
		offA, offB, n := longestCommonRun(a, b)
		if n < minRun {
			return total
		}
		total += n
		a = a[:offA] + "\x00" + a[offA+n:]
		b = b[:offB] + "\x01" + b[offB+n:]
	}
}

// longestCommonRun finds the longest common substring of a and b, returning
// its offsets and length. The earliest occurrence wins on ties.
func longestCommonRun(a, b string) (offA, offB, length int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > length {
					length = cur[j]
					offA = i - length
					offB = j - length
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return offA, offB, length
}

// normalizeTitle lowercases the title, folds punctuation into whitespace, and
// collapses whitespace runs to single spaces.
func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	var sb strings.Builder
	sb.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			sb.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimRight(sb.String(), " ")
}
