package game

import (
	"github.com/google/uuid"
)

// Player is a participant of a session. It survives reconnections: the UUID is
// stable while the connection handle changes.
type Player struct {
	UUID      uuid.UUID
	Pseudonym string
	Online    bool
	Master    bool
	Ready     bool

	// conn is the current connection handle, empty while offline.
	conn string
}

// View returns the public representation of the player.
func (p *Player) View() PlayerView {
	return PlayerView{
		UUID:      p.UUID,
		Pseudonym: p.Pseudonym,
		Ready:     p.Ready,
		Master:    p.Master,
		Online:    p.Online,
	}
}

// Conn returns the player's current connection handle.
func (p *Player) Conn() string {
	return p.conn
}

// Roster tracks the players of one session. It never broadcasts: the Game
// decides what to tell clients about roster changes.
type Roster struct {
	players map[uuid.UUID]*Player
	order   []uuid.UUID
	master  uuid.UUID
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{
		players: make(map[uuid.UUID]*Player),
	}
}

// Join registers a connection for id. An offline player is reactivated on the
// new connection; otherwise a fresh player record replaces any previous one.
// The joiner becomes master when nobody was online or when it is the recorded
// master. reconnected reports whether an offline player was reactivated.
func (r *Roster) Join(conn string, id uuid.UUID, pseudonym string) (player *Player, reconnected bool) {
	master := r.OnlineCount() == 0 || r.master == id

	player, exists := r.players[id]
	if exists && !player.Online {
		player.Online = true
		player.conn = conn
		reconnected = true
	} else {
		player = &Player{
			UUID:      id,
			Pseudonym: pseudonym,
			Online:    true,
			Ready:     true,
			conn:      conn,
		}
		if !exists {
			r.order = append(r.order, id)
		}
		r.players[id] = player
	}

	if master {
		if previous, ok := r.players[r.master]; ok && r.master != id {
			previous.Master = false
		}
		r.master = id
		player.Master = true
	}

	return player, reconnected
}

// Leave takes a player offline. With remove set the player is deleted instead,
// which is what happens before the game has started. It returns the affected
// player (nil if unknown) and whether anyone is still online.
func (r *Roster) Leave(id uuid.UUID, remove bool) (*Player, bool) {
	player, ok := r.players[id]
	if !ok {
		return nil, r.OnlineCount() > 0
	}

	if remove {
		r.delete(id)
	} else {
		player.Online = false
		player.conn = ""
	}

	return player, r.OnlineCount() > 0
}

// PruneOffline deletes every offline player.
func (r *Roster) PruneOffline() []uuid.UUID {
	var pruned []uuid.UUID
	for _, id := range append([]uuid.UUID(nil), r.order...) {
		if !r.players[id].Online {
			r.delete(id)
			pruned = append(pruned, id)
		}
	}
	return pruned
}

func (r *Roster) delete(id uuid.UUID) {
	delete(r.players, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the player for id.
func (r *Roster) Get(id uuid.UUID) (*Player, bool) {
	player, ok := r.players[id]
	return player, ok
}

// Has reports whether id belongs to a known player, online or not.
func (r *Roster) Has(id uuid.UUID) bool {
	_, ok := r.players[id]
	return ok
}

// IsMaster reports whether id is the recorded master.
func (r *Roster) IsMaster(id uuid.UUID) bool {
	return r.master != uuid.Nil && r.master == id
}

// MasterID returns the recorded master UUID.
func (r *Roster) MasterID() uuid.UUID {
	return r.master
}

// All returns every known player in join order.
func (r *Roster) All() []*Player {
	players := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		players = append(players, r.players[id])
	}
	return players
}

// Online returns the online players in join order.
func (r *Roster) Online() []*Player {
	players := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		if player := r.players[id]; player.Online {
			players = append(players, player)
		}
	}
	return players
}

// OnlineIDs returns the UUIDs of the online players in join order.
func (r *Roster) OnlineIDs() []uuid.UUID {
	online := r.Online()
	ids := make([]uuid.UUID, 0, len(online))
	for _, player := range online {
		ids = append(ids, player.UUID)
	}
	return ids
}

// OnlineCount returns how many players are online.
func (r *Roster) OnlineCount() int {
	count := 0
	for _, player := range r.players {
		if player.Online {
			count++
		}
	}
	return count
}

// Len returns how many players are known.
func (r *Roster) Len() int {
	return len(r.players)
}
