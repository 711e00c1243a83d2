package game

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultIdleTimeout is how long a session may stay without online players.
const DefaultIdleTimeout = 20 * time.Minute

// Reaper destroys a session once it has had no online player for a while.
type Reaper struct {
	trigger   *Trigger
	threshold time.Duration
	destroy   func()
	log       zerolog.Logger
}

func newReaper(trigger *Trigger, threshold time.Duration, destroy func(), logger zerolog.Logger) *Reaper {
	if threshold <= 0 {
		threshold = DefaultIdleTimeout
	}
	return &Reaper{
		trigger:   trigger,
		threshold: threshold,
		destroy:   destroy,
		log:       logger,
	}
}

// Arm schedules the destruction, replacing any pending one.
func (r *Reaper) Arm() {
	r.log.Debug().Dur("threshold", r.threshold).Msg("session empty, scheduling deletion")
	r.trigger.Arm(r.threshold, func() {
		r.log.Info().Dur("threshold", r.threshold).Msg("session idle without players, destroying")
		if r.destroy != nil {
			r.destroy()
		}
	})
}

// Halt cancels a pending destruction.
func (r *Reaper) Halt() {
	if r.trigger.Armed() {
		r.log.Debug().Msg("player back, deletion cancelled")
	}
	r.trigger.Cancel()
}

// Pending reports whether a destruction is scheduled.
func (r *Reaper) Pending() bool {
	return r.trigger.Armed()
}
