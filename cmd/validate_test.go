package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMediaDir(t *testing.T) {
	t.Run("argument wins over config", func(t *testing.T) {
		dir, err := resolveMediaDir("/configured", []string{"/from-arg"})
		require.NoError(t, err)
		assert.Equal(t, "/from-arg", dir)
	})

	t.Run("argument works without configured root", func(t *testing.T) {
		dir, err := resolveMediaDir("", []string{"/from-arg"})
		require.NoError(t, err)
		assert.Equal(t, "/from-arg", dir)
	})

	t.Run("falls back to config", func(t *testing.T) {
		dir, err := resolveMediaDir("/configured", nil)
		require.NoError(t, err)
		assert.Equal(t, "/configured", dir)
	})

	t.Run("neither given", func(t *testing.T) {
		_, err := resolveMediaDir("", nil)
		assert.ErrorContains(t, err, "no media root")
	})
}
