package models

import (
	"cmp"
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StrongCouplingThreshold is the score at which a pair counts as strongly coupled.
const StrongCouplingThreshold = 0.5

// CouplingKey is an unordered pair of distinct files, stored smaller first.
type CouplingKey struct {
	A FileID
	B FileID
}

// NewCouplingKey canonicalises the pair so (a, b) and (b, a) are the same key.
func NewCouplingKey(a, b FileID) CouplingKey {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return CouplingKey{A: a, B: b}
}

// Compare orders keys by their first file, then their second.
func (k CouplingKey) Compare(other CouplingKey) int {
	if c := k.A.Compare(other.A); c != 0 {
		return c
	}
	return k.B.Compare(other.B)
}

// CouplingStatistic describes how often two files changed together.
type CouplingStatistic struct {
	Key CouplingKey
	// Together is the number of grouped units containing both files.
	Together int
	// Total is the number of grouped units containing at least one of them.
	Total int
	// Score is Together/Total, a fraction in (0, 1].
	Score float64
}

// NewCouplingStatistic builds a statistic from its counts.
func NewCouplingStatistic(key CouplingKey, together, total int) CouplingStatistic {
	return CouplingStatistic{
		Key:      key,
		Together: together,
		Total:    total,
		Score:    float64(together) / float64(total),
	}
}

// Weight is score × total. Since score is together/total this is exactly
// Together, which keeps ranking free of floating point noise.
func (s CouplingStatistic) Weight() int {
	return s.Together
}

// CompareRank orders statistics for presentation: heavier pairs first, then
// higher scores, then by key.
func CompareRank(a, b CouplingStatistic) int {
	if c := cmp.Compare(b.Weight(), a.Weight()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return a.Key.Compare(b.Key)
}

// RankCouplings sorts statistics into presentation order in place.
func RankCouplings(couplings []CouplingStatistic) {
	slices.SortFunc(couplings, CompareRank)
}

// CouplingSummary provides aggregate statistics over every emitted pair.
type CouplingSummary struct {
	TotalPairs      int     `json:"total_pairs" yaml:"total_pairs" toon:"total_pairs"`
	StrongPairs     int     `json:"strong_pairs" yaml:"strong_pairs" toon:"strong_pairs"`
	AvgScore        float64 `json:"avg_score" yaml:"avg_score" toon:"avg_score"`
	MaxScore        float64 `json:"max_score" yaml:"max_score" toon:"max_score"`
	MaxTogether     int     `json:"max_together" yaml:"max_together" toon:"max_together"`
	UnitsAnalyzed   int     `json:"units_analyzed" yaml:"units_analyzed" toon:"units_analyzed"`
	FilesAnalyzed   int     `json:"files_analyzed" yaml:"files_analyzed" toon:"files_analyzed"`
	SourcesAnalyzed int     `json:"sources_analyzed" yaml:"sources_analyzed" toon:"sources_analyzed"`
}

// CouplingReport is the ranked result of a coupling analysis. An empty report
// means no pair of files ever changed together.
type CouplingReport struct {
	GeneratedAt time.Time
	Sources     []string
	Grouping    string
	Units       int
	Files       int
	Couplings   []CouplingStatistic
	Summary     CouplingSummary
}

// Empty reports whether no coupling was found.
func (r *CouplingReport) Empty() bool {
	return len(r.Couplings) == 0
}

// Len returns the number of coupled pairs.
func (r *CouplingReport) Len() int {
	return len(r.Couplings)
}

// All iterates the statistics in ranked order.
func (r *CouplingReport) All() iter.Seq2[int, CouplingStatistic] {
	return func(yield func(int, CouplingStatistic) bool) {
		for i, c := range r.Couplings {
			if !yield(i, c) {
				return
			}
		}
	}
}

// Top returns at most n leading statistics. n <= 0 returns all of them.
func (r *CouplingReport) Top(n int) []CouplingStatistic {
	if n <= 0 || n >= len(r.Couplings) {
		return r.Couplings
	}
	return r.Couplings[:n]
}

// Lookup finds the statistic for a pair in either order.
func (r *CouplingReport) Lookup(a, b FileID) (CouplingStatistic, bool) {
	key := NewCouplingKey(a, b)
	for _, c := range r.Couplings {
		if c.Key == key {
			return c, true
		}
	}
	return CouplingStatistic{}, false
}

// CalculateSummary computes summary statistics from couplings.
func (r *CouplingReport) CalculateSummary() {
	r.Summary = CouplingSummary{
		TotalPairs:      len(r.Couplings),
		UnitsAnalyzed:   r.Units,
		FilesAnalyzed:   r.Files,
		SourcesAnalyzed: len(r.Sources),
	}
	if len(r.Couplings) == 0 {
		return
	}

	scores := make([]float64, len(r.Couplings))
	for i, c := range r.Couplings {
		scores[i] = c.Score
		if c.Score >= StrongCouplingThreshold {
			r.Summary.StrongPairs++
		}
		r.Summary.MaxTogether = max(r.Summary.MaxTogether, c.Together)
	}
	r.Summary.AvgScore = stat.Mean(scores, nil)
	r.Summary.MaxScore = floats.Max(scores)
}

// Fingerprint hashes the ranked statistics. Two runs over the same history
// with the same options produce the same fingerprint.
func (r *CouplingReport) Fingerprint() string {
	d := xxhash.New()
	for _, c := range r.Couplings {
		_, _ = d.WriteString(c.Key.A.String())
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(c.Key.B.String())
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(strconv.Itoa(c.Together))
		_, _ = d.WriteString("/")
		_, _ = d.WriteString(strconv.Itoa(c.Total))
		_, _ = d.WriteString("\n")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
