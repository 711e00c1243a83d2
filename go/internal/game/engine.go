package game

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/petitbac/go/internal/game/rules"
)

// Options configures the sessions created by a Registry.
type Options struct {
	Clock    clockwork.Clock
	Rules    Rules
	Notifier Notifier
	Sink     EventSink
	Archiver Archiver

	// Defaults is the configuration of a fresh session. Nil means
	// DefaultConfiguration.
	Defaults    *Configuration
	IdleTimeout time.Duration
	Rand        *rand.Rand
	Logger      *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Rules == nil {
		o.Rules = rules.Standard{}
	}
	if o.Notifier == nil {
		o.Notifier = discardNotifier{}
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
	return o
}

// Game is the state machine of one session. It is not safe for concurrent
// use: every method runs on the owning Session goroutine.
type Game struct {
	slug     string
	clock    clockwork.Clock
	rules    Rules
	notifier Notifier
	sink     EventSink
	archiver Archiver
	log      zerolog.Logger

	phase  Phase
	config Configuration
	roster *Roster
	drawer *LetterDrawer

	turn          int
	letter        string
	turnStarted   time.Time
	interruptedBy *uuid.UUID
	finalReceived *idSet
	votesReady    *idSet
	turns         map[int]*Turn
	scores        []ScoreEntry

	turnTimer *Trigger
	reaper    *Reaper
	createdAt time.Time
}

// newGame builds a game whose timer callbacks are handed to post. onIdle is
// called once the session stayed empty for the idle timeout.
func newGame(slug string, opts Options, post func(func()), onIdle func()) *Game {
	opts = opts.withDefaults()

	config := DefaultConfiguration()
	if opts.Defaults != nil {
		config = opts.Defaults.clone()
	}

	logger := opts.Logger.With().Str("slug", slug).Logger()

	g := &Game{
		slug:          slug,
		clock:         opts.Clock,
		rules:         opts.Rules,
		notifier:      opts.Notifier,
		sink:          opts.Sink,
		archiver:      opts.Archiver,
		log:           logger,
		phase:         PhaseConfig,
		config:        config,
		roster:        NewRoster(),
		drawer:        NewLetterDrawer(opts.Rand),
		finalReceived: newIDSet(),
		votesReady:    newIDSet(),
		turns:         make(map[int]*Turn),
		turnTimer:     newTrigger(opts.Clock, post),
		createdAt:     opts.Clock.Now(),
	}
	g.reaper = newReaper(newTrigger(opts.Clock, post), opts.IdleTimeout, onIdle, logger)

	// A session nobody ever joins is reaped like an abandoned one.
	g.reaper.Arm()

	return g
}

// Phase returns the current phase.
func (g *Game) Phase() Phase {
	return g.phase
}

// Configuration returns a copy of the current configuration.
func (g *Game) Configuration() Configuration {
	return g.config.clone()
}

// Scores returns a copy of the final scores, empty before the game ended.
func (g *Game) Scores() []ScoreEntry {
	return append([]ScoreEntry(nil), g.scores...)
}

// Summary returns a read-only overview of the session.
func (g *Game) Summary() Summary {
	return Summary{
		Slug:          g.slug,
		Phase:         g.phase,
		Turn:          g.turn,
		Turns:         g.config.Turns,
		OnlinePlayers: g.roster.OnlineCount(),
		TotalPlayers:  g.roster.Len(),
		CreatedAt:     g.createdAt,
	}
}

// Join registers a player on conn, or reconnects it. The joiner receives the
// other players, the configuration and, mid-game, a catch-up snapshot.
func (g *Game) Join(conn string, id uuid.UUID, pseudonym string) {
	player, reconnected := g.roster.Join(conn, id, sanitizePseudonym(pseudonym))

	g.broadcast(EventPlayerJoin, PlayerJoinPayload{Player: player.View()})

	for _, other := range g.roster.All() {
		if other.UUID == id {
			continue
		}
		g.notifier.Send(conn, Event{Name: EventPlayerJoin, Payload: PlayerJoinPayload{Player: other.View()}})
	}

	g.sendTo(id, EventConfigUpdated, ConfigUpdatedPayload{Configuration: g.config.clone()})

	if g.phase != PhaseConfig {
		g.catchUp(id)
	}

	g.log.Info().
		Str("player_uuid", id.String()).
		Str("pseudonym", player.Pseudonym).
		Bool("reconnected", reconnected).
		Bool("master", player.Master).
		Int("online", g.roster.OnlineCount()).
		Int("total", g.roster.Len()).
		Msg("player joined")

	g.reaper.Halt()
}

// Leave takes a player out of the session. Before the game starts the player
// is forgotten; afterwards it only goes offline so its answers still count.
func (g *Game) Leave(id uuid.UUID) {
	if existing, ok := g.roster.Get(id); !ok || !existing.Online {
		return
	}

	player, anyOnline := g.roster.Leave(id, g.phase == PhaseConfig)

	g.broadcast(EventPlayerLeft, PlayerLeftPayload{Player: PlayerRef{UUID: player.UUID}})

	g.log.Info().
		Str("player_uuid", id.String()).
		Str("pseudonym", player.Pseudonym).
		Int("online", g.roster.OnlineCount()).
		Int("total", g.roster.Len()).
		Msg("player left")

	switch g.phase {
	case PhaseRoundAnswers, PhaseRoundAnswersFinal:
		g.checkRoundEnd()
	case PhaseRoundVotes:
		g.checkVoteEnd()
	}

	if !anyOnline {
		g.reaper.Arm()
	}
}

// Disconnect is Leave for a closed connection. It is ignored when the player
// already reconnected on another connection.
func (g *Game) Disconnect(conn string, id uuid.UUID) {
	player, ok := g.roster.Get(id)
	if !ok || !player.Online || player.conn != conn {
		return
	}
	g.Leave(id)
}

// UpdateConfiguration applies a configuration edit from the master. Anyone
// else gets the authoritative configuration back.
func (g *Game) UpdateConfiguration(id uuid.UUID, request ConfigurationRequest) {
	if g.phase != PhaseConfig || !g.roster.Has(id) {
		g.ignored("update-config", id)
		return
	}

	if !g.roster.IsMaster(id) {
		g.log.Debug().Str("player_uuid", id.String()).Msg("configuration edit from non-master rolled back")
		g.sendTo(id, EventConfigUpdated, ConfigUpdatedPayload{Configuration: g.config.clone()})
		return
	}

	g.config = request.Normalize()
	g.broadcast(EventConfigUpdated, ConfigUpdatedPayload{Configuration: g.config.clone()})

	g.log.Info().
		Strs("categories", g.config.Categories).
		Bool("stop_on_first_completion", g.config.StopOnFirstCompletion).
		Int("turns", g.config.Turns).
		Int("time", g.config.Time).
		Msg("configuration updated")
}

// Start begins the first turn. Only the master may start.
func (g *Game) Start(id uuid.UUID) {
	if g.phase != PhaseConfig || !g.roster.Has(id) || !g.roster.IsMaster(id) {
		g.ignored("start", id)
		return
	}

	g.log.Info().Str("player_uuid", id.String()).Msg("starting game")
	g.beginTurn()
}

// Restart brings a finished game back to configuration. Offline players are
// dropped.
func (g *Game) Restart(id uuid.UUID) {
	if g.phase != PhaseEnd || !g.roster.Has(id) || !g.roster.IsMaster(id) {
		g.ignored("restart", id)
		return
	}

	g.turnTimer.Cancel()
	g.phase = PhaseConfig
	g.turn = 0
	g.letter = ""
	g.turnStarted = time.Time{}
	g.interruptedBy = nil
	g.finalReceived.reset()
	g.votesReady.reset()
	g.turns = make(map[int]*Turn)
	g.scores = nil

	pruned := g.roster.PruneOffline()
	for _, player := range g.roster.All() {
		player.Ready = true
	}

	g.broadcast(EventGameRestarted, GameRestartedPayload{})

	g.log.Info().Int("pruned", len(pruned)).Msg("game restarted")
}

func (g *Game) beginTurn() {
	g.turnTimer.Cancel()

	g.turn++
	g.letter = g.drawer.Draw()
	g.interruptedBy = nil
	g.finalReceived.reset()
	g.votesReady.reset()
	g.turns[g.turn] = newTurn(g.turn, g.letter)
	g.phase = PhaseRoundAnswers
	g.turnStarted = g.clock.Now()
	for _, player := range g.roster.All() {
		player.Ready = false
	}

	g.broadcast(EventRoundStarted, RoundStartedPayload{Turn: g.turn, Letter: g.letter})

	if !g.config.Untimed() {
		g.turnTimer.Arm(time.Duration(g.config.Time)*time.Second, func() {
			g.log.Debug().Int("turn", g.turn).Msg("turn timer elapsed")
			g.endTurn()
		})
	}

	g.log.Info().
		Int("turn", g.turn).
		Int("turns", g.config.Turns).
		Str("letter", g.letter).
		Bool("timed", !g.config.Untimed()).
		Msg("turn started")
}

func (g *Game) endTurn() {
	if g.phase != PhaseRoundAnswers {
		return
	}

	g.turnTimer.Cancel()
	g.phase = PhaseRoundAnswersFinal
	g.broadcast(EventRoundEnded, RoundEndedPayload{})

	g.log.Info().Int("turn", g.turn).Msg("turn ended, collecting final answers")

	// Nobody can send final answers, vote with what we have.
	if g.roster.OnlineCount() == 0 {
		g.startVote()
	}
}

func (g *Game) endGame() {
	if g.phase != PhaseRoundVotes {
		return
	}

	g.turnTimer.Cancel()

	turns := make([]*Turn, 0, len(g.turns))
	for number := 1; number <= g.turn; number++ {
		if turn, ok := g.turns[number]; ok {
			turns = append(turns, turn)
		}
	}
	players := make([]uuid.UUID, 0, g.roster.Len())
	for _, player := range g.roster.All() {
		players = append(players, player.UUID)
		player.Ready = true
	}

	g.scores = computeScores(g.rules, players, turns, g.config.Categories)
	g.phase = PhaseEnd

	g.broadcast(EventGameEnded, GameEndedPayload{Scores: g.scores})

	g.log.Info().Int("turns", g.turn).Int("players", len(players)).Msg("game ended")

	if g.archiver != nil {
		g.archiver.Archive(g.result())
	}
}

func (g *Game) result() Result {
	pseudonyms := make(map[uuid.UUID]string, g.roster.Len())
	for _, player := range g.roster.All() {
		pseudonyms[player.UUID] = player.Pseudonym
	}
	return Result{
		Slug:       g.slug,
		EndedAt:    g.clock.Now(),
		Turns:      g.turn,
		Categories: append([]string(nil), g.config.Categories...),
		Scores:     append([]ScoreEntry(nil), g.scores...),
		Pseudonyms: pseudonyms,
	}
}

// shutdown disarms every timer of the game.
func (g *Game) shutdown() {
	g.turnTimer.Cancel()
	g.reaper.Halt()
}

func (g *Game) ignored(intent string, id uuid.UUID) {
	g.log.Debug().
		Str("intent", intent).
		Str("player_uuid", id.String()).
		Str("phase", string(g.phase)).
		Msg("intent ignored")
}
