package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/perlparse/pkg/cst"
	"github.com/yaklabco/perlparse/pkg/syntax"
)

func numberLeaf(start int) *cst.Node {
	n := syntax.NewNode(syntax.NodeNumber, syntax.Span{Start: start, End: start + 1})
	n.Value = "1"
	return cst.Leaf(n)
}

func TestBuildPushesOneChildAtATime(t *testing.T) {
	t.Parallel()

	const width = 1000
	children := make([]*cst.Node, 0, width+2)
	for i := range width {
		children = append(children, numberLeaf(i*2))
		if i == width/2 {
			children = append(children, nil, cst.New(cst.RuleStatement, syntax.Span{}))
		}
	}
	tree := cst.New(cst.RuleProgram, syntax.Span{End: width * 2}, children...)

	b := New()
	root := b.Build(tree)
	require.Empty(t, b.Errors())
	require.Len(t, root.Children, width)
	for i, child := range root.Children {
		assert.Equal(t, i*2, child.Span.Start)
	}
	assert.Equal(t, 2, b.peak, "a wide node keeps only itself and one pending child")
}

func TestBuildStackGrowsWithDepthOnly(t *testing.T) {
	t.Parallel()

	const depth = 100
	node := numberLeaf(0)
	for range depth {
		node = cst.Construct(syntax.NodeBlock, syntax.Span{End: 1}, node, numberLeaf(0))
	}

	b := New()
	root := b.Build(node)
	require.NotNil(t, root)
	assert.Equal(t, depth+1, b.peak)
}
