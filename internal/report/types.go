package report

import (
	"time"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
)

// Data is the serialisable form of a coupling report.
type Data struct {
	GeneratedAt string                 `json:"generated_at" yaml:"generated_at" toon:"generated_at"`
	Sources     []string               `json:"sources" yaml:"sources" toon:"sources"`
	Grouping    string                 `json:"grouping" yaml:"grouping" toon:"grouping"`
	Fingerprint string                 `json:"fingerprint" yaml:"fingerprint" toon:"fingerprint"`
	Summary     models.CouplingSummary `json:"summary" yaml:"summary" toon:"summary"`
	Couplings   []Pair                 `json:"couplings" yaml:"couplings" toon:"couplings"`
}

// Pair is one coupled pair of files.
type Pair struct {
	FileA    string  `json:"file_a" yaml:"file_a" toon:"file_a"`
	FileB    string  `json:"file_b" yaml:"file_b" toon:"file_b"`
	Score    float64 `json:"score" yaml:"score" toon:"score"`
	Together int     `json:"together" yaml:"together" toon:"together"`
	Total    int     `json:"total" yaml:"total" toon:"total"`
}

// NewData converts r, keeping at most top pairs. The summary always covers
// every pair.
func NewData(r *models.CouplingReport, top int) Data {
	shown := r.Top(top)
	d := Data{
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		Sources:     append([]string{}, r.Sources...),
		Grouping:    r.Grouping,
		Fingerprint: r.Fingerprint(),
		Summary:     r.Summary,
		Couplings:   make([]Pair, len(shown)),
	}
	for i, c := range shown {
		d.Couplings[i] = Pair{
			FileA:    c.Key.A.String(),
			FileB:    c.Key.B.String(),
			Score:    c.Score,
			Together: c.Together,
			Total:    c.Total,
		}
	}
	return d
}
