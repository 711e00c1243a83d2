package game

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/petitbac/go/internal/game/rules"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]Event)}
}

func (n *recordingNotifier) Send(conn string, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[conn] = append(n.events[conn], event)
}

func (n *recordingNotifier) count(conn string, name EventName) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, event := range n.events[conn] {
		if event.Name == name {
			count++
		}
	}
	return count
}

func (n *recordingNotifier) last(conn string, name EventName) (Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := n.events[conn]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name == name {
			return events[i], true
		}
	}
	return Event{}, false
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = make(map[string][]Event)
}

type recordingArchiver struct {
	mu      sync.Mutex
	results []Result
}

func (a *recordingArchiver) Archive(result Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
}

func (a *recordingArchiver) all() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Result(nil), a.results...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Record(_ string, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// harness drives a Game directly. Timer callbacks are collected in posted and
// only run when the test says so.
type harness struct {
	t        *testing.T
	clock    *clockwork.FakeClock
	notifier *recordingNotifier
	archiver *recordingArchiver
	sink     *recordingSink
	posted   chan func()
	idle     int
	game     *Game
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := zerolog.Nop()
	h := &harness{
		t:        t,
		clock:    clockwork.NewFakeClock(),
		notifier: newRecordingNotifier(),
		archiver: &recordingArchiver{},
		sink:     &recordingSink{},
		posted:   make(chan func(), 16),
	}
	h.game = newGame("test-session", Options{
		Clock:    h.clock,
		Rules:    rules.Standard{},
		Notifier: h.notifier,
		Sink:     h.sink,
		Archiver: h.archiver,
		Rand:     rand.New(rand.NewPCG(1, 2)),
		Logger:   &logger,
	}, func(fn func()) { h.posted <- fn }, func() { h.idle++ })

	t.Cleanup(h.game.shutdown)
	return h
}

// nextPosted waits for one timer callback without running it.
func (h *harness) nextPosted() func() {
	h.t.Helper()
	select {
	case fn := <-h.posted:
		return fn
	case <-time.After(2 * time.Second):
		h.t.Fatal("no timer callback posted")
		return nil
	}
}

func (h *harness) runPosted() {
	h.t.Helper()
	h.nextPosted()()
}

func (h *harness) join(pseudonym string) uuid.UUID {
	id := uuid.New()
	h.game.Join(connOf(id), id, pseudonym)
	return id
}

func (h *harness) configure(master uuid.UUID, categories []string, stop bool, turns, seconds int) {
	h.t.Helper()
	request := Configuration{
		Categories:            categories,
		StopOnFirstCompletion: stop,
		Turns:                 turns,
		Time:                  seconds,
	}.Request()
	h.game.UpdateConfiguration(master, request)
	require.Equal(h.t, categories, h.game.config.Categories)
}

// answersFor returns a valid, player-specific answer for every category.
func (h *harness) answersFor(tag string) map[string]string {
	answers := make(map[string]string, len(h.game.config.Categories))
	for i, category := range h.game.config.Categories {
		answers[category] = h.game.letter + tag + string(rune('a'+i))
	}
	return answers
}

func connOf(id uuid.UUID) string {
	return "conn-" + id.String()
}
