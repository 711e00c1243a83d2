package game

import (
	"time"

	"github.com/google/uuid"
)

// catchUp sends a player joining mid-game the state of the current phase.
// Joining during the final answers or the vote counts as having reported in.
func (g *Game) catchUp(id uuid.UUID) {
	switch g.phase {
	case PhaseConfig:
		return
	case PhaseRoundAnswersFinal:
		g.finalReceived.add(id)
	case PhaseRoundVotes:
		g.votesReady.add(id)
	}

	g.sendTo(id, EventCatchUpState, g.snapshot())

	g.log.Debug().Str("player_uuid", id.String()).Str("phase", string(g.phase)).Msg("catch-up sent")
}

func (g *Game) snapshot() CatchUpPayload {
	payload := CatchUpPayload{State: g.phase}

	switch g.phase {
	case PhaseRoundAnswers, PhaseRoundAnswersFinal:
		// Clients have no separate view for the final answers.
		payload.State = PhaseRoundAnswers

		answers := g.currentTurn().Answers
		ready := make([]uuid.UUID, 0, len(answers))
		for _, player := range g.roster.All() {
			if _, ok := answers[player.UUID]; ok {
				ready = append(ready, player.UUID)
			}
		}

		payload.Round = &RoundSnapshot{
			Turn:         g.turn,
			Letter:       g.letter,
			TimeLeft:     g.timeLeft(),
			PlayersReady: ready,
		}
	case PhaseRoundVotes:
		payload.Vote = &VoteSnapshot{
			VotesByCategory: g.currentTurn().Votes,
			InterruptedBy:   g.interruptedBy,
			PlayersReady:    g.votesReady.list(),
		}
	case PhaseEnd:
		payload.End = &EndSnapshot{Scores: g.Scores()}
	}

	return payload
}

// timeLeft returns the whole seconds left in the current turn, nil when turns
// are untimed.
func (g *Game) timeLeft() *int {
	if g.config.Untimed() {
		return nil
	}
	elapsed := int(g.clock.Since(g.turnStarted) / time.Second)
	left := max(g.config.Time-elapsed, 0)
	return &left
}
