package content

import (
	"cmp"
	"slices"
)

// RankedBefore reports whether revision a outranks revision b within the same
// entity when selecting the most recent qualifying revision.
//
// Order within a partition:
//  1. NULL changed first (never synced, treated as infinitely recent)
//  2. changed descending
//  3. revision id descending (tie-break)
//
// This is the ORDER BY of the ranked window query in querysql; both must agree.
func RankedBefore(a, b *Revision) bool {
	switch {
	case a.Changed == nil && b.Changed != nil:
		return true
	case a.Changed != nil && b.Changed == nil:
		return false
	case a.Changed != nil && b.Changed != nil && *a.Changed != *b.Changed:
		return *a.Changed > *b.Changed
	}
	return a.RevisionID > b.RevisionID
}

// SelectLatest keeps the top-ranked revision per entity id and returns the
// selected revision ids in ascending order.
//
// Callers filter candidates first (UpdatedQuery.Matches). The result is the
// in-memory equivalent of ROW_NUMBER() ... WHERE rn = 1 ORDER BY revision_id.
func SelectLatest(candidates []*Revision) []int64 {
	best := make(map[int64]*Revision, len(candidates))
	for _, r := range candidates {
		cur, ok := best[r.ID]
		if !ok || RankedBefore(r, cur) {
			best[r.ID] = r
		}
	}

	ids := make([]int64, 0, len(best))
	for _, r := range best {
		ids = append(ids, r.RevisionID)
	}
	slices.SortFunc(ids, cmp.Compare[int64])
	return ids
}
