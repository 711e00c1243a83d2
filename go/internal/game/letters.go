package game

import "math/rand/v2"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// LetterDrawer draws turn letters without repetition until every letter of the
// alphabet has been drawn, then starts a new cycle.
type LetterDrawer struct {
	rnd  *rand.Rand
	used map[byte]bool
}

// NewLetterDrawer returns a drawer using rnd, or the global source when rnd is nil.
func NewLetterDrawer(rnd *rand.Rand) *LetterDrawer {
	return &LetterDrawer{
		rnd:  rnd,
		used: make(map[byte]bool, len(alphabet)),
	}
}

// Draw returns the next letter.
func (d *LetterDrawer) Draw() string {
	if len(d.used) == len(alphabet) {
		clear(d.used)
	}

	remaining := make([]byte, 0, len(alphabet)-len(d.used))
	for i := 0; i < len(alphabet); i++ {
		if !d.used[alphabet[i]] {
			remaining = append(remaining, alphabet[i])
		}
	}

	letter := remaining[d.intN(len(remaining))]
	d.used[letter] = true
	return string(letter)
}

func (d *LetterDrawer) intN(n int) int {
	if d.rnd == nil {
		return rand.IntN(n)
	}
	return d.rnd.IntN(n)
}
