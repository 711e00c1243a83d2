// Package results archives the outcome of finished games in Postgres.
package results

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrResultsNotFound = errors.New("no archived results")

// GameRecord is one archived game.
type GameRecord struct {
	ID         uuid.UUID     `json:"id"`
	Slug       string        `json:"slug"`
	EndedAt    time.Time     `json:"ended_at"`
	Turns      int           `json:"turns"`
	Categories []string      `json:"categories"`
	Scores     []ScoreRecord `json:"scores"`
}

// ScoreRecord is the final line of one player in an archived game.
type ScoreRecord struct {
	PlayerUUID uuid.UUID `json:"uuid"`
	Pseudonym  string    `json:"pseudonym"`
	Score      int       `json:"score"`
	Rank       int       `json:"rank"`
}
