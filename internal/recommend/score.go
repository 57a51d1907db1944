package recommend

import (
	"sort"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
)

// Composite score weights. Buying is the strongest signal, searching the
// weakest.
const (
	WeightBought   = 3
	WeightViewed   = 2
	WeightSearched = 1
)

// CombineOverlaps folds the three per-action overlap counts into one
// composite ranking. Candidates are ordered by descending score, ties
// broken by ascending product key, so the result is deterministic for a
// given graph snapshot.
func CombineOverlaps(bought, viewed, searched []domain.Ranked) []domain.Ranked {
	totals := make(map[int64]int64)
	for _, r := range bought {
		totals[r.ID] += WeightBought * r.Score
	}
	for _, r := range viewed {
		totals[r.ID] += WeightViewed * r.Score
	}
	for _, r := range searched {
		totals[r.ID] += WeightSearched * r.Score
	}

	out := make([]domain.Ranked, 0, len(totals))
	for id, score := range totals {
		out = append(out, domain.Ranked{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
