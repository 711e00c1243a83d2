package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/petitbac/go/internal/game/rules"
)

func text(s string) *string {
	return &s
}

func TestRankScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   []int
	}{
		{name: "tie on top", scores: []int{30, 20, 30}, want: []int{1, 1, 2}},
		{name: "tie in the middle", scores: []int{20, 30, 10, 20}, want: []int{1, 2, 2, 3}},
		{name: "single", scores: []int{0}, want: []int{1}},
		{name: "all equal", scores: []int{5, 5, 5}, want: []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]ScoreEntry, 0, len(tt.scores))
			for _, score := range tt.scores {
				entries = append(entries, ScoreEntry{UUID: uuid.New(), Score: score})
			}

			rankScores(entries)

			ranks := make([]int, 0, len(entries))
			for i, entry := range entries {
				if i > 0 {
					assert.GreaterOrEqual(t, entries[i-1].Score, entry.Score)
				}
				ranks = append(ranks, entry.Rank)
			}
			assert.Equal(t, tt.want, ranks)
		})
	}
}

func TestScoreCell(t *testing.T) {
	standard := rules.Standard{}
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	approved := map[uuid.UUID]bool{alice: true, bob: true, carol: true}
	rejected := map[uuid.UUID]bool{alice: false, bob: false, carol: true}

	tests := []struct {
		name     string
		byAuthor map[uuid.UUID]*Vote
		want     int
	}{
		{
			name:     "missing answer",
			byAuthor: map[uuid.UUID]*Vote{bob: {Text: text("Paris"), Valid: true, Votes: approved}},
			want:     PointsEmpty,
		},
		{
			name:     "empty answer",
			byAuthor: map[uuid.UUID]*Vote{alice: {Text: text(""), Valid: false, Votes: approved}},
			want:     PointsEmpty,
		},
		{
			name:     "invalid answer ignores votes",
			byAuthor: map[uuid.UUID]*Vote{alice: {Text: text("Lyon"), Valid: false, Votes: approved}},
			want:     PointsInvalid,
		},
		{
			name:     "refused by majority",
			byAuthor: map[uuid.UUID]*Vote{alice: {Text: text("Paris"), Valid: true, Votes: rejected}},
			want:     PointsRefused,
		},
		{
			name: "unique",
			byAuthor: map[uuid.UUID]*Vote{
				alice: {Text: text("Paris"), Valid: true, Votes: approved},
				bob:   {Text: text("Pau"), Valid: true, Votes: approved},
				carol: {Text: nil, Valid: false, Votes: approved},
			},
			want: PointsValid,
		},
		{
			name: "duplicate ignores case and whitespace",
			byAuthor: map[uuid.UUID]*Vote{
				alice: {Text: text("Paris"), Valid: true, Votes: approved},
				bob:   {Text: text("  paris "), Valid: true, Votes: approved},
			},
			want: PointsDuplicate,
		},
		{
			name: "duplicate of a refused answer still counts",
			byAuthor: map[uuid.UUID]*Vote{
				alice: {Text: text("Paris"), Valid: true, Votes: approved},
				bob:   {Text: text("Paris"), Valid: true, Votes: rejected},
			},
			want: PointsDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreCell(standard, tt.byAuthor, alice))
		})
	}
}

func TestComputeScores(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	voters := func(valid bool) map[uuid.UUID]bool {
		return map[uuid.UUID]bool{alice: valid, bob: valid}
	}

	first := newTurn(1, "P")
	first.Votes = map[string]map[uuid.UUID]*Vote{
		"Pays": {
			alice: {Text: text("Pérou"), Valid: true, Votes: voters(true)},
			bob:   {Text: text("perou"), Valid: true, Votes: voters(true)},
		},
		"Ville": {
			alice: {Text: text("Paris"), Valid: true, Votes: voters(true)},
			bob:   {Text: text("Lyon"), Valid: false, Votes: voters(false)},
		},
	}
	second := newTurn(2, "B")
	second.Votes = map[string]map[uuid.UUID]*Vote{
		"Pays": {
			bob: {Text: text("Belgique"), Valid: true, Votes: voters(true)},
		},
	}

	scores := computeScores(rules.Standard{}, []uuid.UUID{alice, bob, carol}, []*Turn{first, second}, []string{"Pays", "Ville"})

	require.Len(t, scores, 3)
	assert.Equal(t, []ScoreEntry{
		{UUID: alice, Score: 15, Rank: 1},
		{UUID: bob, Score: 15, Rank: 1},
		{UUID: carol, Score: 0, Rank: 2},
	}, scores)
}
