// Package incremental records which byte ranges of a document changed
// since its tree was last built, so that unaffected subtrees can be
// reused.
package incremental

import (
	"sort"
	"sync"

	"github.com/yaklabco/perlparse/pkg/syntax"
)

// Tracker keeps a sorted set of disjoint changed regions. Regions that
// overlap or touch are merged as soon as they are added. It is safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	regions []syntax.Span
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// MarkChanged records the half-open range [start, end). An inverted
// range is swapped.
func (t *Tracker) MarkChanged(start, end int) {
	if end < start {
		start, end = end, start
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.regions = append(t.regions, syntax.Span{Start: start, End: end})
	t.regions = merge(t.regions)
}

func merge(regions []syntax.Span) []syntax.Span {
	if len(regions) < 2 {
		return regions
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Start < regions[j].Start
	})

	out := regions[:1]
	for _, r := range regions[1:] {
		cur := &out[len(out)-1]
		if r.Start <= cur.End {
			if r.End > cur.End {
				cur.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// NeedsReparse reports whether [start, end) overlaps a changed region.
// Touching a region does not count.
func (t *Tracker) NeedsReparse(start, end int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.regions {
		if start < r.End && end > r.Start {
			return true
		}
	}
	return false
}

// FirstChange returns the start of the earliest changed region.
func (t *Tracker) FirstChange() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.regions) == 0 {
		return 0, false
	}
	return t.regions[0].Start, true
}

// Regions returns a copy of the changed regions in order.
func (t *Tracker) Regions() []syntax.Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]syntax.Span, len(t.regions))
	copy(out, t.regions)
	return out
}

// Dirty reports whether any region is tracked.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regions) > 0
}

// Clear forgets every region, typically after a rebuild has committed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.regions = nil
	t.mu.Unlock()
}
