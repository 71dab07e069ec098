package incremental_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yaklabco/perlparse/pkg/incremental"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

func TestMarkChangedMergesOverlap(t *testing.T) {
	t.Parallel()

	tr := incremental.New()
	tr.MarkChanged(10, 20)
	tr.MarkChanged(18, 35)

	assert.Equal(t, []syntax.Span{{Start: 10, End: 35}}, tr.Regions())
}

func TestNeedsReparseIsStrict(t *testing.T) {
	t.Parallel()

	tr := incremental.New()
	tr.MarkChanged(10, 20)
	tr.MarkChanged(18, 35)

	tests := []struct {
		start, end int
		want       bool
	}{
		{5, 10, false},
		{35, 40, false},
		{15, 25, true},
		{0, 11, true},
		{34, 50, true},
		{12, 13, true},
		{0, 100, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.NeedsReparse(tt.start, tt.end), "[%d,%d)", tt.start, tt.end)
	}
}

func TestMarkChangedMerges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		marks [][2]int
		want  []syntax.Span
	}{
		{"touching", [][2]int{{0, 5}, {5, 9}}, []syntax.Span{{Start: 0, End: 9}}},
		{"gap", [][2]int{{0, 5}, {6, 9}}, []syntax.Span{{Start: 0, End: 5}, {Start: 6, End: 9}}},
		{"out of order", [][2]int{{30, 40}, {0, 5}, {4, 31}}, []syntax.Span{{Start: 0, End: 40}}},
		{"contained", [][2]int{{0, 50}, {10, 20}}, []syntax.Span{{Start: 0, End: 50}}},
		{"inverted", [][2]int{{20, 10}}, []syntax.Span{{Start: 10, End: 20}}},
		{"bridging", [][2]int{{0, 2}, {8, 10}, {2, 8}}, []syntax.Span{{Start: 0, End: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := incremental.New()
			for _, m := range tt.marks {
				tr.MarkChanged(m[0], m[1])
			}
			assert.Equal(t, tt.want, tr.Regions())
		})
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	tr := incremental.New()
	assert.False(t, tr.Dirty())
	_, ok := tr.FirstChange()
	assert.False(t, ok)

	tr.MarkChanged(40, 50)
	tr.MarkChanged(3, 4)
	assert.True(t, tr.Dirty())
	first, ok := tr.FirstChange()
	assert.True(t, ok)
	assert.Equal(t, 3, first)

	tr.Clear()
	assert.False(t, tr.Dirty())
	assert.Empty(t, tr.Regions())
	assert.False(t, tr.NeedsReparse(0, 100))
}

func TestRegionsReturnsCopy(t *testing.T) {
	t.Parallel()

	tr := incremental.New()
	tr.MarkChanged(0, 1)
	regions := tr.Regions()
	regions[0].End = 99
	assert.Equal(t, []syntax.Span{{Start: 0, End: 1}}, tr.Regions())
}

func TestConcurrentMarks(t *testing.T) {
	t.Parallel()

	tr := incremental.New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.MarkChanged(i*10, i*10+10)
			tr.NeedsReparse(0, i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []syntax.Span{{Start: 0, End: 1000}}, tr.Regions())
}
