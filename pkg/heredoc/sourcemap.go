package heredoc

import (
	"sort"
	"strings"
)

// SourceMap translates offsets in the rewritten source back to the
// original source. The zero value is the identity map.
type SourceMap struct {
	segs []segment
}

// segment is a run of rewritten text. Copied runs map byte for byte;
// replaced runs (placeholders, removed bodies) map to their original
// start at their first byte and to their original end otherwise.
type segment struct {
	newStart  int
	newEnd    int
	origStart int
	origEnd   int
	copied    bool
}

// Original maps an offset in the rewritten source to the original source.
func (m *SourceMap) Original(offset int) int {
	if m == nil || len(m.segs) == 0 {
		return offset
	}
	i := sort.Search(len(m.segs), func(i int) bool {
		return m.segs[i].newStart > offset
	}) - 1
	if i < 0 {
		return offset
	}
	seg := m.segs[i]
	if seg.copied {
		return seg.origStart + (offset - seg.newStart)
	}
	if offset == seg.newStart {
		return seg.origStart
	}
	return seg.origEnd
}

// Rewritten maps an original offset to the rewritten source. Offsets
// inside a replaced run map to the start of its replacement.
func (m *SourceMap) Rewritten(offset int) int {
	if m == nil || len(m.segs) == 0 {
		return offset
	}
	i := sort.Search(len(m.segs), func(i int) bool {
		return m.segs[i].origEnd > offset
	})
	if i == len(m.segs) {
		last := m.segs[len(m.segs)-1]
		return last.newEnd + (offset - last.origEnd)
	}
	seg := m.segs[i]
	if seg.copied && offset >= seg.origStart {
		return seg.newStart + (offset - seg.origStart)
	}
	return seg.newStart
}

// Identity reports whether the map changes no offsets.
func (m *SourceMap) Identity() bool {
	if m == nil {
		return true
	}
	for _, seg := range m.segs {
		if !seg.copied || seg.origStart != seg.newStart {
			return false
		}
	}
	return true
}

// rewriter accumulates rewritten text and its source map.
type rewriter struct {
	out  strings.Builder
	segs []segment
}

func (r *rewriter) copyText(text string, origStart int) {
	if text == "" {
		return
	}
	r.segs = append(r.segs, segment{
		newStart:  r.out.Len(),
		origStart: origStart,
		origEnd:   origStart + len(text),
		copied:    true,
	})
	r.out.WriteString(text)
	r.segs[len(r.segs)-1].newEnd = r.out.Len()
}

func (r *rewriter) replace(text string, origStart, origEnd int) {
	r.segs = append(r.segs, segment{
		newStart:  r.out.Len(),
		origStart: origStart,
		origEnd:   origEnd,
	})
	r.out.WriteString(text)
	r.segs[len(r.segs)-1].newEnd = r.out.Len()
}

func (r *rewriter) result() (string, *SourceMap) {
	return r.out.String(), &SourceMap{segs: r.segs}
}
