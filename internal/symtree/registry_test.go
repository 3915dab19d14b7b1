package symtree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	require.NoError(t, reg.Register(braceFrontend()))

	t.Run("rejects duplicates and invalid front-ends", func(t *testing.T) {
		err := reg.Register(braceFrontend())
		assert.ErrorIs(t, err, ErrDuplicateLanguage)

		dup := braceFrontend()
		dup.Language = "other"
		dup.Aliases = []string{"BR"}
		assert.ErrorIs(t, reg.Register(dup), ErrDuplicateLanguage)

		assert.Error(t, reg.Register(Frontend{Language: "empty"}))

		bad := braceFrontend()
		bad.Language, bad.Aliases, bad.Patterns = "bad", nil, []string{"[unclosed"}
		assert.Error(t, reg.Register(bad))
	})

	require.NoError(t, reg.AddPattern("Bracefile", "brace"))
	assert.Error(t, reg.AddPattern("*.x", "nope"))

	reg.Freeze()
	reg.Freeze()
	assert.True(t, reg.Frozen())
	late := braceFrontend()
	late.Language, late.Aliases, late.Patterns = "late", nil, nil
	assert.ErrorIs(t, reg.Register(late), ErrRegistryFrozen)
	assert.ErrorIs(t, reg.AddPattern("*.late", "brace"), ErrRegistryFrozen)

	for _, tag := range []string{"brace", "BRACE", " br "} {
		fe, err := reg.Resolve(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, "brace", fe.Language)
	}

	for _, p := range []string{"a.brace", "deep/dir/b.brace", "project/Bracefile"} {
		fe, err := reg.ResolvePath(p)
		require.NoError(t, err, p)
		assert.Equal(t, "brace", fe.Language)
	}

	_, err := reg.ResolvePath("notes.txt")
	var ul *UnknownLanguageError
	require.True(t, errors.As(err, &ul))
	assert.Equal(t, "txt", ul.Language)

	_, err = reg.ResolvePath("Makefile")
	require.True(t, errors.As(err, &ul))
	assert.Equal(t, "Makefile", ul.Language)

	assert.Equal(t, []string{"brace"}, reg.Languages())
}
