package game

import (
	"github.com/google/uuid"
)

// EventName is the action name of an outbound event.
type EventName string

const (
	EventPlayerJoin    EventName = "player-join"
	EventPlayerLeft    EventName = "player-left"
	EventConfigUpdated EventName = "config-updated"
	EventRoundStarted  EventName = "round-started"
	EventPlayerReady   EventName = "player-ready"
	EventRoundEnded    EventName = "round-ended"
	EventVoteStarted   EventName = "vote-started"
	EventVoteChanged   EventName = "vote-changed"
	EventGameEnded     EventName = "game-ended"
	EventGameRestarted EventName = "game-restarted"
	EventCatchUpState  EventName = "catch-up-game-state"
)

// Event is an outbound notification. Payloads may reference live session
// state, so consumers must serialize them before returning.
type Event struct {
	Name    EventName `json:"action"`
	Payload any       `json:"data"`
}

// Notifier delivers events to one connection. Delivery is best-effort and
// must never block the caller.
type Notifier interface {
	Send(conn string, event Event)
}

// EventSink receives a copy of every broadcast event of a session.
type EventSink interface {
	Record(slug string, event Event)
}

// Archiver receives the result of every finished game.
type Archiver interface {
	Archive(result Result)
}

type PlayerJoinPayload struct {
	Player PlayerView `json:"player"`
}

type PlayerLeftPayload struct {
	Player PlayerRef `json:"player"`
}

type ConfigUpdatedPayload struct {
	Configuration Configuration `json:"configuration"`
}

type RoundStartedPayload struct {
	Turn   int    `json:"turn"`
	Letter string `json:"letter"`
}

type PlayerReadyPayload struct {
	Player PlayerRef `json:"player"`
}

type RoundEndedPayload struct{}

type VoteStartedPayload struct {
	VotesByCategory map[string]map[uuid.UUID]*Vote `json:"votes_by_category"`
	InterruptedBy   *uuid.UUID                     `json:"interrupted_by"`
}

type VoteChangedPayload struct {
	VoterUUID  uuid.UUID `json:"voter_uuid"`
	AuthorUUID uuid.UUID `json:"author_uuid"`
	Category   string    `json:"category"`
	Approved   bool      `json:"approved"`
}

type GameEndedPayload struct {
	Scores []ScoreEntry `json:"scores"`
}

type GameRestartedPayload struct{}

// CatchUpPayload is the state snapshot sent to a player joining mid-game.
type CatchUpPayload struct {
	State Phase          `json:"state"`
	Round *RoundSnapshot `json:"round,omitempty"`
	Vote  *VoteSnapshot  `json:"vote,omitempty"`
	End   *EndSnapshot   `json:"end,omitempty"`
}

type RoundSnapshot struct {
	Turn         int         `json:"turn"`
	Letter       string      `json:"letter"`
	TimeLeft     *int        `json:"time_left"`
	PlayersReady []uuid.UUID `json:"players_ready"`
}

type VoteSnapshot struct {
	VotesByCategory map[string]map[uuid.UUID]*Vote `json:"votes_by_category"`
	InterruptedBy   *uuid.UUID                     `json:"interrupted_by"`
	PlayersReady    []uuid.UUID                    `json:"players_ready"`
}

type EndSnapshot struct {
	Scores []ScoreEntry `json:"scores"`
}
