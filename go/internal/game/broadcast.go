package game

import (
	"github.com/google/uuid"
)

// broadcast sends an event to every online player holding a connection and
// mirrors it to the event sink. Callers mutate state first, then broadcast.
func (g *Game) broadcast(name EventName, payload any) {
	event := Event{Name: name, Payload: payload}
	recipients := 0
	for _, player := range g.roster.Online() {
		if player.conn == "" {
			continue
		}
		g.notifier.Send(player.conn, event)
		recipients++
	}
	if g.sink != nil {
		g.sink.Record(g.slug, event)
	}

	g.log.Debug().
		Str("event", string(name)).
		Int("recipients", recipients).
		Msg("event broadcasted")
}

// sendTo sends an event to a single online player.
func (g *Game) sendTo(id uuid.UUID, name EventName, payload any) {
	player, ok := g.roster.Get(id)
	if !ok || !player.Online || player.conn == "" {
		return
	}
	g.notifier.Send(player.conn, Event{Name: name, Payload: payload})
}

type discardNotifier struct{}

func (discardNotifier) Send(string, Event) {}
