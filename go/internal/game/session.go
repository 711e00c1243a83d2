package game

import (
	"sync"

	"github.com/google/uuid"
)

const inboxSize = 256

// Session runs one Game on its own goroutine. Intents and timer callbacks are
// queued in an inbox and applied one at a time, so the Game never sees two
// mutations interleave.
type Session struct {
	slug string
	game *Game

	inbox     chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newSession(slug string, opts Options, onIdle func(*Session)) *Session {
	s := &Session{
		slug:    slug,
		inbox:   make(chan func(), inboxSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.game = newGame(slug, opts, func(fn func()) { s.Post(fn) }, func() { onIdle(s) })

	go s.run()

	return s
}

func (s *Session) run() {
	defer close(s.stopped)

	for {
		// A closure that closed the session, such as the idle reaper, must
		// win over intents queued behind it.
		select {
		case <-s.done:
			s.game.shutdown()
			return
		default:
		}

		select {
		case fn := <-s.inbox:
			fn()
		case <-s.done:
			s.game.shutdown()
			return
		}
	}
}

// Slug returns the session identifier.
func (s *Session) Slug() string {
	return s.slug
}

// Post queues fn to run on the session goroutine. It reports false when the
// session is closed.
func (s *Session) Post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Call runs fn on the session goroutine and waits for it to return.
func (s *Session) Call(fn func(g *Game)) error {
	finished := make(chan struct{})
	if !s.Post(func() {
		defer close(finished)
		fn(s.game)
	}) {
		return ErrSessionClosed
	}

	select {
	case <-finished:
		return nil
	case <-s.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrSessionClosed
		}
	}
}

// Summary returns an overview of the session.
func (s *Session) Summary() (Summary, error) {
	var summary Summary
	err := s.Call(func(g *Game) {
		summary = g.Summary()
	})
	return summary, err
}

// Close stops the session. Pending intents are discarded. It does not wait,
// so it may be called from the session goroutine itself.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

func (s *Session) Join(conn string, id uuid.UUID, pseudonym string) bool {
	return s.Post(func() { s.game.Join(conn, id, pseudonym) })
}

// JoinAndWait joins like Join but waits until the session has applied it. It
// returns ErrSessionClosed when the session closed before the join ran, e.g.
// because the idle reaper deleted it.
func (s *Session) JoinAndWait(conn string, id uuid.UUID, pseudonym string) error {
	return s.Call(func(g *Game) { g.Join(conn, id, pseudonym) })
}

func (s *Session) Leave(id uuid.UUID) bool {
	return s.Post(func() { s.game.Leave(id) })
}

func (s *Session) Disconnect(conn string, id uuid.UUID) bool {
	return s.Post(func() { s.game.Disconnect(conn, id) })
}

func (s *Session) UpdateConfiguration(id uuid.UUID, request ConfigurationRequest) bool {
	return s.Post(func() { s.game.UpdateConfiguration(id, request) })
}

func (s *Session) Start(id uuid.UUID) bool {
	return s.Post(func() { s.game.Start(id) })
}

func (s *Session) SubmitAnswers(id uuid.UUID, answers map[string]string) bool {
	return s.Post(func() { s.game.SubmitAnswers(id, answers) })
}

func (s *Session) SubmitVote(voter uuid.UUID, category string, author uuid.UUID, approve bool) bool {
	return s.Post(func() { s.game.SubmitVote(voter, category, author, approve) })
}

func (s *Session) SubmitVoteReady(id uuid.UUID) bool {
	return s.Post(func() { s.game.SubmitVoteReady(id) })
}

func (s *Session) Restart(id uuid.UUID) bool {
	return s.Post(func() { s.game.Restart(id) })
}
