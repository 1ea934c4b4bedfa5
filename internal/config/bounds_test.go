package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBounds(t *testing.T) {
	bounds, err := ParseBounds([]byte(`
parameters:
  weapon.smg.damage: {min: 10, max: 40, initial: 22, max_delta: 3}
  economy.mult: {min: 0.5, max: 2, initial: 1}
`))
	require.NoError(t, err)
	assert.Equal(t, ParameterBounds{Min: 10, Max: 40, Initial: 22, MaxDelta: 3}, bounds["weapon.smg.damage"])
	assert.Zero(t, bounds["economy.mult"].MaxDelta)
}

func TestParseBounds_Rejects(t *testing.T) {
	cases := map[string]string{
		"min above max":     "parameters: {p: {min: 5, max: 1, initial: 3}}",
		"initial out":       "parameters: {p: {min: 0, max: 1, initial: 3}}",
		"negative maxDelta": "parameters: {p: {min: 0, max: 1, initial: 0, max_delta: -1}}",
		"not yaml":          "parameters: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBounds([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseBounds_EmptyDocument(t *testing.T) {
	bounds, err := ParseBounds(nil)
	require.NoError(t, err)
	assert.Empty(t, bounds)
}

func TestLoadBounds_ShippedFile(t *testing.T) {
	bounds, err := LoadBounds(filepath.Join("..", "..", "config", "autotune_bounds.yaml"))
	require.NoError(t, err)
	assert.Contains(t, bounds, "weapon.smg.damage")

	_, err = LoadBounds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
