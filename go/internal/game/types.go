package game

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the state of a session's game-state machine.
type Phase string

const (
	PhaseConfig            Phase = "CONFIG"
	PhaseRoundAnswers      Phase = "ROUND_ANSWERS"
	PhaseRoundAnswersFinal Phase = "ROUND_ANSWERS_FINAL"
	PhaseRoundVotes        Phase = "ROUND_VOTES"
	PhaseEnd               Phase = "END"
)

// Points awarded per (turn, category) cell.
const (
	PointsValid     = 10
	PointsDuplicate = 5
	PointsInvalid   = 0
	PointsRefused   = 0
	PointsEmpty     = 0
)

// Rules are the pure word predicates the engine delegates to.
type Rules interface {
	// IsAnswerValid reports whether word is an acceptable answer for letter.
	IsAnswerValid(letter, word string) bool
	// IsAnswerAccepted reports whether a voter approval map accepts an answer.
	IsAnswerAccepted(votes map[uuid.UUID]bool) bool
	// CompareAnswers reports whether two answers count as the same answer.
	CompareAnswers(a, b string) bool
}

// PlayerView is the public representation of a player sent to clients.
type PlayerView struct {
	UUID      uuid.UUID `json:"uuid"`
	Pseudonym string    `json:"pseudonym"`
	Ready     bool      `json:"ready"`
	Master    bool      `json:"master"`
	Online    bool      `json:"online"`
}

// PlayerRef identifies a player in event payloads.
type PlayerRef struct {
	UUID uuid.UUID `json:"uuid"`
}

// Answer is one player's answer for one category of a turn.
// Text is nil when the category was missing from the submission.
type Answer struct {
	Text  *string `json:"answer"`
	Valid bool    `json:"valid"`
}

// IsEmpty reports whether the answer carries no usable text.
func (a Answer) IsEmpty() bool {
	return a.Text == nil || *a.Text == ""
}

// Vote holds the approval map for one author's answer in one category.
type Vote struct {
	Text  *string            `json:"answer"`
	Valid bool               `json:"valid"`
	Votes map[uuid.UUID]bool `json:"votes"`
}

// Turn records what happened during one turn number.
type Turn struct {
	Number  int
	Letter  string
	Answers map[uuid.UUID]map[string]Answer
	// Votes is keyed by category then by author; nil until voting starts.
	Votes map[string]map[uuid.UUID]*Vote
}

func newTurn(number int, letter string) *Turn {
	return &Turn{
		Number:  number,
		Letter:  letter,
		Answers: make(map[uuid.UUID]map[string]Answer),
	}
}

// ScoreEntry is one line of the final score list.
type ScoreEntry struct {
	UUID  uuid.UUID `json:"uuid"`
	Score int       `json:"score"`
	Rank  int       `json:"rank"`
}

// Result is the archived outcome of a finished game.
type Result struct {
	Slug       string
	EndedAt    time.Time
	Turns      int
	Categories []string
	Scores     []ScoreEntry
	Pseudonyms map[uuid.UUID]string
}

// Summary is a read-only overview of a session.
type Summary struct {
	Slug          string    `json:"slug"`
	Phase         Phase     `json:"phase"`
	Turn          int       `json:"turn"`
	Turns         int       `json:"turns"`
	OnlinePlayers int       `json:"online_players"`
	TotalPlayers  int       `json:"total_players"`
	CreatedAt     time.Time `json:"created_at"`
}
