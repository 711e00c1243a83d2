package game

import (
	"slices"

	"github.com/google/uuid"
)

// computeScores totals the points of every player over every turn and
// category and ranks them. players gives the order used to break ties.
func computeScores(rules Rules, players []uuid.UUID, turns []*Turn, categories []string) []ScoreEntry {
	scores := make([]ScoreEntry, 0, len(players))
	for _, id := range players {
		total := 0
		for _, turn := range turns {
			for _, category := range categories {
				total += scoreCell(rules, turn.Votes[category], id)
			}
		}
		scores = append(scores, ScoreEntry{UUID: id, Score: total})
	}

	rankScores(scores)
	return scores
}

// scoreCell returns the points of author's answer given every vote of one
// (turn, category) cell.
func scoreCell(rules Rules, byAuthor map[uuid.UUID]*Vote, author uuid.UUID) int {
	vote := byAuthor[author]
	switch {
	case vote == nil || vote.Text == nil || *vote.Text == "":
		return PointsEmpty
	case !vote.Valid:
		return PointsInvalid
	case !rules.IsAnswerAccepted(vote.Votes):
		return PointsRefused
	}

	for other, otherVote := range byAuthor {
		if other == author || otherVote.Text == nil || *otherVote.Text == "" {
			continue
		}
		if rules.CompareAnswers(*vote.Text, *otherVote.Text) {
			return PointsDuplicate
		}
	}
	return PointsValid
}

// rankScores sorts scores best first and assigns dense ranks: equal scores
// share a rank and the next lower score gets the following rank.
func rankScores(scores []ScoreEntry) {
	slices.SortStableFunc(scores, func(a, b ScoreEntry) int {
		return b.Score - a.Score
	})

	rank := 1
	for i := range scores {
		if i > 0 && scores[i].Score < scores[i-1].Score {
			rank++
		}
		scores[i].Rank = rank
	}
}
