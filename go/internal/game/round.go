package game

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxPseudonymLength = 32
	maxAnswerLength    = 64
)

// SubmitAnswers stores a player's answers for the current turn, replacing any
// earlier submission. Categories missing from answers are recorded empty.
func (g *Game) SubmitAnswers(id uuid.UUID, answers map[string]string) {
	if g.phase != PhaseRoundAnswers && g.phase != PhaseRoundAnswersFinal {
		g.ignored("submit-answers", id)
		return
	}
	player, ok := g.roster.Get(id)
	if !ok {
		return
	}

	checked := make(map[string]Answer, len(g.config.Categories))
	for _, category := range g.config.Categories {
		word, ok := answers[category]
		if !ok {
			checked[category] = Answer{}
			continue
		}
		word = sanitizeAnswer(word)
		checked[category] = Answer{
			Text:  &word,
			Valid: g.rules.IsAnswerValid(g.letter, word),
		}
	}

	g.currentTurn().Answers[id] = checked
	player.Ready = true

	g.log.Debug().Str("player_uuid", id.String()).Int("turn", g.turn).Str("phase", string(g.phase)).Msg("answers received")

	if g.phase == PhaseRoundAnswers {
		g.broadcast(EventPlayerReady, PlayerReadyPayload{Player: PlayerRef{UUID: id}})

		if g.config.StopOnFirstCompletion {
			interrupter := id
			g.interruptedBy = &interrupter
			g.endTurn()
		}
	} else {
		g.finalReceived.add(id)
	}

	g.checkRoundEnd()
}

// checkRoundEnd moves on once every online player reported for the phase.
func (g *Game) checkRoundEnd() {
	switch g.phase {
	case PhaseRoundAnswers:
		answers := g.currentTurn().Answers
		for _, id := range g.roster.OnlineIDs() {
			if _, ok := answers[id]; !ok {
				return
			}
		}
		g.endTurn()
	case PhaseRoundAnswersFinal:
		if g.finalReceived.containsAll(g.roster.OnlineIDs()) {
			g.startVote()
		}
	}
}

// startVote opens the vote on every stored answer. Each online player's vote
// starts at the answer's own validity.
func (g *Game) startVote() {
	turn := g.currentTurn()
	online := g.roster.OnlineIDs()

	votes := make(map[string]map[uuid.UUID]*Vote, len(g.config.Categories))
	for author, answers := range turn.Answers {
		for category, answer := range answers {
			byAuthor, ok := votes[category]
			if !ok {
				byAuthor = make(map[uuid.UUID]*Vote)
				votes[category] = byAuthor
			}

			vote := &Vote{
				Text:  answer.Text,
				Valid: answer.Valid,
				Votes: make(map[uuid.UUID]bool, len(online)),
			}
			for _, voter := range online {
				vote.Votes[voter] = answer.Valid
			}
			byAuthor[author] = vote
		}
	}

	turn.Votes = votes
	g.phase = PhaseRoundVotes
	for _, player := range g.roster.All() {
		player.Ready = false
	}

	g.broadcast(EventVoteStarted, VoteStartedPayload{
		VotesByCategory: votes,
		InterruptedBy:   g.interruptedBy,
	})

	g.log.Info().Int("turn", g.turn).Int("authors", len(turn.Answers)).Msg("vote started")
}

// SubmitVote records voter's approval of author's answer in category. Votes on
// answers that were not part of the vote are dropped.
func (g *Game) SubmitVote(voter uuid.UUID, category string, author uuid.UUID, approve bool) {
	if g.phase != PhaseRoundVotes {
		g.ignored("submit-vote", voter)
		return
	}
	if !g.roster.Has(voter) || !g.roster.Has(author) || !g.config.HasCategory(category) {
		return
	}

	vote := g.currentTurn().Votes[category][author]
	if vote == nil {
		g.log.Debug().
			Str("player_uuid", voter.String()).
			Str("author_uuid", author.String()).
			Str("category", category).
			Msg("vote on unknown answer dropped")
		return
	}

	vote.Votes[voter] = approve

	g.broadcast(EventVoteChanged, VoteChangedPayload{
		VoterUUID:  voter,
		AuthorUUID: author,
		Category:   category,
		Approved:   approve,
	})
}

// SubmitVoteReady marks a player done with the vote of the current turn.
func (g *Game) SubmitVoteReady(id uuid.UUID) {
	if g.phase != PhaseRoundVotes {
		g.ignored("vote-ready", id)
		return
	}
	player, ok := g.roster.Get(id)
	if !ok {
		return
	}

	if g.votesReady.add(id) {
		player.Ready = true
		g.broadcast(EventPlayerReady, PlayerReadyPayload{Player: PlayerRef{UUID: id}})
	}

	g.checkVoteEnd()
}

// checkVoteEnd starts the next turn, or ends the game after the last one,
// once every online player is ready.
func (g *Game) checkVoteEnd() {
	if g.phase != PhaseRoundVotes {
		return
	}
	if !g.votesReady.containsAll(g.roster.OnlineIDs()) {
		return
	}

	if g.turn >= g.config.Turns {
		g.endGame()
		return
	}
	g.beginTurn()
}

func (g *Game) currentTurn() *Turn {
	turn, ok := g.turns[g.turn]
	if !ok {
		turn = newTurn(g.turn, g.letter)
		g.turns[g.turn] = turn
	}
	return turn
}

// idSet is an insertion-ordered set of player UUIDs.
type idSet struct {
	order []uuid.UUID
	seen  map[uuid.UUID]bool
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[uuid.UUID]bool)}
}

// add inserts id and reports whether it was missing.
func (s *idSet) add(id uuid.UUID) bool {
	if s.seen[id] {
		return false
	}
	s.seen[id] = true
	s.order = append(s.order, id)
	return true
}

func (s *idSet) has(id uuid.UUID) bool {
	return s.seen[id]
}

func (s *idSet) containsAll(ids []uuid.UUID) bool {
	for _, id := range ids {
		if !s.seen[id] {
			return false
		}
	}
	return true
}

func (s *idSet) list() []uuid.UUID {
	return append(make([]uuid.UUID, 0, len(s.order)), s.order...)
}

func (s *idSet) reset() {
	s.order = nil
	clear(s.seen)
}

func sanitizePseudonym(pseudonym string) string {
	return truncateRunes(strings.TrimSpace(pseudonym), maxPseudonymLength)
}

func sanitizeAnswer(answer string) string {
	return truncateRunes(strings.TrimSpace(answer), maxAnswerLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
