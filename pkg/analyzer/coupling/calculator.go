package coupling

import (
	"slices"

	"github.com/PurpleBooth/git-moves-together/pkg/models"
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/sourcegraph/conc/iter"
)

// Calculate derives the ranked coupling statistics of every pair of files that
// changed together at least once. The index is only read.
func Calculate(ix *Index) []models.CouplingStatistic {
	files := ix.FilesTouched()
	sets := make([]*roaring.Bitmap, len(files))
	for i, f := range files {
		sets[i] = ix.units(f)
	}

	rows := make([]int, len(files))
	for i := range rows {
		rows[i] = i
	}

	// Each row pairs files[i] with every later file; rows are independent.
	perRow := iter.Map(rows, func(i *int) []models.CouplingStatistic {
		var out []models.CouplingStatistic
		a := sets[*i]
		for j := *i + 1; j < len(files); j++ {
			together := a.AndCardinality(sets[j])
			if together == 0 {
				continue
			}
			total := a.OrCardinality(sets[j])
			key := models.NewCouplingKey(files[*i], files[j])
			out = append(out, models.NewCouplingStatistic(key, int(together), int(total)))
		}
		return out
	})

	couplings := slices.Concat(perRow...)
	models.RankCouplings(couplings)
	return couplings
}
