package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/petitbac/go/internal/game"
)

// ClientAction names an intent sent by a client.
type ClientAction string

const (
	ActionJoin          ClientAction = "join"
	ActionLeave         ClientAction = "leave"
	ActionUpdateConfig  ClientAction = "update-config"
	ActionStart         ClientAction = "start"
	ActionSubmitAnswers ClientAction = "submit-answers"
	ActionSubmitVote    ClientAction = "submit-vote"
	ActionVoteReady     ClientAction = "vote-ready"
	ActionRestart       ClientAction = "restart"
)

// ClientMessage is the frame clients send: an action and its data.
type ClientMessage struct {
	Action ClientAction    `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type JoinData struct {
	UUID      uuid.UUID `json:"uuid"`
	Pseudonym string    `json:"pseudonym"`
}

type UpdateConfigData struct {
	Configuration game.ConfigurationRequest `json:"configuration"`
}

// SubmitAnswersData maps categories to answers. Clients may send any JSON
// scalar as an answer; null counts as a missing answer.
type SubmitAnswersData struct {
	Answers map[string]any `json:"answers"`
}

// Texts returns the answers as text.
func (d SubmitAnswersData) Texts() map[string]string {
	texts := make(map[string]string, len(d.Answers))
	for category, value := range d.Answers {
		switch v := value.(type) {
		case nil:
		case string:
			texts[category] = v
		case float64:
			texts[category] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			texts[category] = fmt.Sprint(v)
		}
	}
	return texts
}

// SubmitVoteData approves or refuses the answer of author UUID in Category.
type SubmitVoteData struct {
	Category string    `json:"category"`
	UUID     uuid.UUID `json:"uuid"`
	Vote     bool      `json:"vote"`
}

// handleClientMessage decodes one client frame and forwards the intent to the
// session. Malformed frames and intents sent before join are dropped.
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("malformed client message")
		return
	}

	if msg.Action == ActionJoin {
		var data JoinData
		if !c.decode(msg, &data) {
			return
		}
		c.join(data)
		return
	}

	if c.session == nil {
		log.Debug().
			Str("connection_id", c.ID).
			Str("action", string(msg.Action)).
			Msg("client message before join, ignoring")
		return
	}

	switch msg.Action {
	case ActionLeave:
		c.session.Leave(c.player)
		c.session = nil
		c.player = uuid.Nil

	case ActionUpdateConfig:
		var data UpdateConfigData
		if c.decode(msg, &data) {
			c.session.UpdateConfiguration(c.player, data.Configuration)
		}

	case ActionStart:
		c.session.Start(c.player)

	case ActionSubmitAnswers:
		var data SubmitAnswersData
		if c.decode(msg, &data) {
			c.session.SubmitAnswers(c.player, data.Texts())
		}

	case ActionSubmitVote:
		var data SubmitVoteData
		if c.decode(msg, &data) {
			c.session.SubmitVote(c.player, data.Category, data.UUID, data.Vote)
		}

	case ActionVoteReady:
		c.session.SubmitVoteReady(c.player)

	case ActionRestart:
		c.session.Restart(c.player)

	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("action", string(msg.Action)).
			Msg("unknown client action")
	}
}

func (c *Connection) decode(msg ClientMessage, into any) bool {
	if len(msg.Data) == 0 {
		log.Debug().Str("connection_id", c.ID).Str("action", string(msg.Action)).Msg("client message without data")
		return false
	}
	if err := json.Unmarshal(msg.Data, into); err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Str("action", string(msg.Action)).Msg("malformed client message data")
		return false
	}
	return true
}

// join binds the connection to a player of its session once the session has
// applied the join. A session reaped before the join ran is replaced by a
// fresh one, once.
func (c *Connection) join(data JoinData) {
	if c.session != nil {
		return
	}
	pseudonym := strings.TrimSpace(data.Pseudonym)
	if data.UUID == uuid.Nil || pseudonym == "" {
		log.Debug().Str("connection_id", c.ID).Msg("join without uuid or pseudonym")
		return
	}

	for attempt := 0; attempt < 2; attempt++ {
		session, err := c.Manager.sessions.Session(c.Slug)
		if err != nil {
			log.Warn().Err(err).Str("slug", c.Slug).Msg("failed to resolve session")
			return
		}
		err = session.JoinAndWait(c.ID, data.UUID, pseudonym)
		if err == nil {
			c.session = session
			c.player = data.UUID
			return
		}
		if !errors.Is(err, game.ErrSessionClosed) {
			log.Warn().Err(err).Str("slug", c.Slug).Msg("failed to join session")
			return
		}
	}
	log.Warn().Str("slug", c.Slug).Msg("session closed while joining")
}
