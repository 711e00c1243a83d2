package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterDrawer_NoRepeatWithinCycle(t *testing.T) {
	drawer := NewLetterDrawer(rand.New(rand.NewPCG(42, 7)))

	seen := make(map[string]bool, len(alphabet))
	for range len(alphabet) {
		letter := drawer.Draw()
		require.Len(t, letter, 1)
		assert.Contains(t, alphabet, letter)
		assert.False(t, seen[letter], "letter %s drawn twice in one cycle", letter)
		seen[letter] = true
	}
	assert.Len(t, seen, len(alphabet))

	// A new cycle starts once the alphabet is exhausted.
	letter := drawer.Draw()
	assert.Contains(t, alphabet, letter)
	assert.Len(t, drawer.used, 1)
}

func TestLetterDrawer_GlobalSource(t *testing.T) {
	drawer := NewLetterDrawer(nil)

	for range 3 * len(alphabet) {
		assert.Contains(t, alphabet, drawer.Draw())
	}
}
