// Package ranking applies ordering policy on top of similarity scores.
package ranking

import "github.com/okian/matchwise/internal/domain/model"

// EnforceProfileFirst returns at most limit candidates from sorted (highest
// score first). When any live profile is present, the best one is placed
// first regardless of template scores; the rest follow in input order.
func EnforceProfileFirst(sorted []model.RankedCandidate, limit int) []model.RankedCandidate {
	if limit <= 0 || len(sorted) == 0 {
		return []model.RankedCandidate{}
	}

	top := -1
	for i, c := range sorted {
		if c.Source == model.SourceProfile {
			top = i
			break
		}
	}
	if top < 0 {
		return append([]model.RankedCandidate(nil), sorted[:min(limit, len(sorted))]...)
	}

	out := make([]model.RankedCandidate, 0, min(limit, len(sorted)))
	out = append(out, sorted[top])
	used := map[string]struct{}{sorted[top].ID: {}}
	for _, c := range sorted {
		if len(out) >= limit {
			break
		}
		if _, dup := used[c.ID]; dup {
			continue
		}
		used[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// HasProfile reports whether any candidate comes from the live pool.
func HasProfile(cs []model.RankedCandidate) bool {
	for _, c := range cs {
		if c.Source == model.SourceProfile {
			return true
		}
	}
	return false
}
