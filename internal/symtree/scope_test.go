package symtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeStack(t *testing.T) {
	t.Parallel()

	s := NewScopeStack(3)
	mod := &Symbol{Kind: KindModule, Name: "M", QualifiedName: "M"}
	cls := &Symbol{Kind: KindClass, Name: "C", QualifiedName: "M::C"}

	assert.Nil(t, s.Top())
	assert.Nil(t, s.CurrentSymbol())
	assert.Equal(t, -1, s.Find("end"))

	require.NoError(t, s.Push(Frame{Symbol: mod, Closer: "end"}))
	require.NoError(t, s.Push(Frame{Symbol: cls, Closer: "end"}))
	require.NoError(t, s.Push(Frame{Closer: "}", Static: true}))
	assert.ErrorIs(t, s.Push(Frame{Closer: "}"}), ErrDepthExceeded)

	assert.Equal(t, 3, s.Len())
	assert.Same(t, cls, s.CurrentSymbol())
	assert.True(t, s.InStaticScope())
	assert.True(t, s.At(1).Declares())
	assert.False(t, s.Top().Declares())
	assert.Equal(t, 1, s.Find("end"))
	assert.Equal(t, 2, s.Find("}"))
	assert.Same(t, mod, s.Lookup("M"))
	assert.Same(t, cls, s.Lookup("M::C"))
	assert.Nil(t, s.Lookup("Other"))

	f, ok := s.Pop()
	require.True(t, ok)
	assert.True(t, f.Static)
	assert.False(t, s.InStaticScope())

	s.Pop()
	s.Pop()
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestScopeStack_ImplicitFramesAreNotClosable(t *testing.T) {
	t.Parallel()

	s := NewScopeStack(0)
	assert.Equal(t, DefaultMaxDepth, s.MaxDepth())
	require.NoError(t, s.Push(Frame{Symbol: &Symbol{Kind: KindModule}, Implicit: true}))
	assert.Equal(t, -1, s.Find(""))
}

func TestScopeStack_IndentedDepth(t *testing.T) {
	t.Parallel()

	s := NewScopeStack(0)
	require.NoError(t, s.Push(Frame{Symbol: &Symbol{Kind: KindClass}, Implicit: true, Indent: 0}))
	require.NoError(t, s.Push(Frame{Symbol: &Symbol{Kind: KindMethod}, Implicit: true, Indent: 4}))
	require.NoError(t, s.Push(Frame{Symbol: &Symbol{Kind: KindFunction}, Implicit: true, Indent: 8}))

	assert.Equal(t, 3, s.IndentedDepth(12))
	assert.Equal(t, 2, s.IndentedDepth(8))
	assert.Equal(t, 2, s.IndentedDepth(5))
	assert.Equal(t, 1, s.IndentedDepth(4))
	assert.Equal(t, 0, s.IndentedDepth(0))

	require.NoError(t, s.Push(Frame{Closer: "}"}))
	assert.Equal(t, 4, s.IndentedDepth(0), "braced frames are never unwound by indentation")
}
