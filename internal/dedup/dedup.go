// Package dedup merges records that represent the same real-world posting.
// Phase one collapses identical content hashes; phase two fuzzy-matches
// across sources and closes the merge relation with union-find, so A~B and
// B~C always end up in a single group.
package dedup

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobradar/internal/model"
)

// Deduplicator merges near-duplicate jobs. The similarity threshold applies
// to the combined fuzzy score in [0,1].
type Deduplicator struct {
	threshold float64
}

// DefaultThreshold is the combined-similarity cutoff for a fuzzy merge.
const DefaultThreshold = 0.85

// NewDeduplicator creates a Deduplicator. threshold <= 0 selects the default.
func NewDeduplicator(threshold float64) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{threshold: threshold}
}

// Dedup collapses exact duplicates, then fuzzy-merges across sources.
// It is idempotent: running it on its own output changes nothing.
func (d *Deduplicator) Dedup(jobs []model.Job) ([]model.Job, []model.DuplicateGroup) {
	collapsed := collapseExact(jobs)

	uf := newUnionFind(len(collapsed))
	for i := 0; i < len(collapsed); i++ {
		for j := i + 1; j < len(collapsed); j++ {
			if !crossSource(collapsed[i], collapsed[j]) {
				continue
			}
			if Similarity(collapsed[i], collapsed[j]) >= d.threshold {
				uf.union(i, j)
			}
		}
	}

	// Gather union-find components, preserving input order for determinism.
	components := make(map[int][]int)
	var roots []int
	for i := range collapsed {
		root := uf.find(i)
		if _, ok := components[root]; !ok {
			roots = append(roots, root)
		}
		components[root] = append(components[root], i)
	}

	var out []model.Job
	var groups []model.DuplicateGroup
	for _, root := range roots {
		members := make([]model.Job, 0, len(components[root]))
		for _, idx := range components[root] {
			members = append(members, collapsed[idx])
		}

		merged := mergeGroup(members)
		out = append(out, merged)

		if len(members) > 1 {
			group := model.DuplicateGroup{
				ID:          uuid.NewString(),
				PrimaryHash: merged.ContentHash,
			}
			for _, m := range members {
				group.MemberHashes = append(group.MemberHashes, m.ContentHash)
			}
			groups = append(groups, group)
			out[len(out)-1].DedupGroupID = group.ID
		}
	}

	return out, groups
}

// collapseExact merges drafts sharing a content hash: the most complete
// draft survives, times_seen accumulates, and source refs are unioned so no
// source+external-id mapping is ever lost.
func collapseExact(jobs []model.Job) []model.Job {
	byHash := make(map[string]int)
	var out []model.Job

	for _, j := range jobs {
		idx, seen := byHash[j.ContentHash]
		if !seen {
			byHash[j.ContentHash] = len(out)
			out = append(out, j)
			continue
		}

		existing := out[idx]
		var keep model.Job
		if moreComplete(j, existing) {
			keep = j
		} else {
			keep = existing
		}

		keep.TimesSeen = existing.TimesSeen + j.TimesSeen
		keep.SourceRefs = unionRefs(existing.SourceRefs, j.SourceRefs)
		keep.FirstSeen = minTime(existing.FirstSeen, j.FirstSeen)
		keep.LastSeen = maxTime(existing.LastSeen, j.LastSeen)
		fillSalary(&keep, existing, j)
		if keep.PostedAt == nil {
			keep.PostedAt = firstPostedAt(existing, j)
		}

		out[idx] = keep
	}

	return out
}

// mergeGroup folds a fuzzy-matched component into its primary record.
// Primary pick: most recently posted, then longest description.
func mergeGroup(members []model.Job) model.Job {
	if len(members) == 1 {
		return members[0]
	}

	sorted := make([]model.Job, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(a, b int) bool {
		pa, pb := sorted[a].PostedAt, sorted[b].PostedAt
		switch {
		case pa != nil && pb != nil && !pa.Equal(*pb):
			return pa.After(*pb)
		case pa != nil && pb == nil:
			return true
		case pa == nil && pb != nil:
			return false
		}
		return len(sorted[a].Description) > len(sorted[b].Description)
	})

	primary := sorted[0]
	for _, m := range sorted[1:] {
		primary.TimesSeen += m.TimesSeen
		primary.SourceRefs = unionRefs(primary.SourceRefs, m.SourceRefs)
		primary.FirstSeen = minTime(primary.FirstSeen, m.FirstSeen)
		primary.LastSeen = maxTime(primary.LastSeen, m.LastSeen)
		fillSalary(&primary, primary, m)
		if primary.PostedAt == nil {
			primary.PostedAt = m.PostedAt
		}
		if primary.Description == "" {
			primary.Description = m.Description
		}
	}

	return primary
}

// crossSource reports whether two records come from disjoint source sets.
// Fuzzy matching only runs across sources; within one source the content
// hash already is the identity.
func crossSource(a, b model.Job) bool {
	seen := make(map[string]bool, len(a.SourceRefs))
	for _, r := range a.SourceRefs {
		seen[r.Source] = true
	}
	for _, r := range b.SourceRefs {
		if seen[r.Source] {
			return false
		}
	}
	return true
}

// moreComplete prefers the draft with the longer description, then the one
// with more populated salary fields.
func moreComplete(a, b model.Job) bool {
	if len(a.Description) != len(b.Description) {
		return len(a.Description) > len(b.Description)
	}
	return salaryFields(a) > salaryFields(b)
}

func salaryFields(j model.Job) int {
	n := 0
	if j.SalaryMin != nil {
		n++
	}
	if j.SalaryMax != nil {
		n++
	}
	if j.Currency != "" {
		n++
	}
	return n
}

func unionRefs(a, b []model.SourceRef) []model.SourceRef {
	seen := make(map[model.SourceRef]bool, len(a)+len(b))
	out := make([]model.SourceRef, 0, len(a)+len(b))
	for _, r := range append(append([]model.SourceRef{}, a...), b...) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// fillSalary copies salary fields into dst from whichever donor has them.
func fillSalary(dst *model.Job, donors ...model.Job) {
	for _, d := range donors {
		if dst.SalaryMin == nil && d.SalaryMin != nil {
			dst.SalaryMin = d.SalaryMin
		}
		if dst.SalaryMax == nil && d.SalaryMax != nil {
			dst.SalaryMax = d.SalaryMax
		}
		if dst.Currency == "" && d.Currency != "" {
			dst.Currency = d.Currency
		}
	}
}

func firstPostedAt(jobs ...model.Job) *time.Time {
	for _, j := range jobs {
		if j.PostedAt != nil {
			return j.PostedAt
		}
	}
	return nil
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// unionFind is a plain weighted union-find over record indexes.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
