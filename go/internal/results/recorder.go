package results

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/petitbac/go/internal/game"
)

const (
	defaultRecorderQueue = 64
	saveTimeout          = 5 * time.Second
)

// Store persists finished games.
type Store interface {
	Save(ctx context.Context, result game.Result) (uuid.UUID, error)
}

// Recorder is a game.Archiver handing results to a Store on a background
// goroutine. Archive never blocks the calling session.
type Recorder struct {
	store Store
	queue chan game.Result
}

func NewRecorder(store Store, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultRecorderQueue
	}
	return &Recorder{
		store: store,
		queue: make(chan game.Result, queueSize),
	}
}

func (r *Recorder) Archive(result game.Result) {
	select {
	case r.queue <- result:
	default:
		log.Warn().Str("slug", result.Slug).Msg("results queue full, dropping game result")
	}
}

// Run saves queued results until ctx is done.
func (r *Recorder) Run(ctx context.Context) {
	log.Info().Msg("results recorder started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(r.queue)).Msg("results recorder stopped")
			return
		case result := <-r.queue:
			r.save(ctx, result)
		}
	}
}

func (r *Recorder) save(ctx context.Context, result game.Result) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	id, err := r.store.Save(ctx, result)
	if err != nil {
		log.Error().Err(err).Str("slug", result.Slug).Msg("failed to archive game result")
		return
	}

	log.Info().
		Str("slug", result.Slug).
		Str("game_id", id.String()).
		Int("players", len(result.Scores)).
		Msg("game result archived")
}
