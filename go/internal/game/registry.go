package game

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"
)

const maxSlugLength = 64

// Registry owns the live sessions of the process, keyed by slug.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry creating sessions with opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// ValidateSlug checks that slug can identify a session.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidSlug, maxSlugLength)
	}
	if strings.ContainsFunc(slug, unicode.IsControl) {
		return fmt.Errorf("%w: contains control characters", ErrInvalidSlug)
	}
	if strings.Contains(slug, "/") {
		return fmt.Errorf("%w: contains a slash", ErrInvalidSlug)
	}
	return nil
}

// Session returns the session for slug, creating it when missing.
func (r *Registry) Session(slug string) (*Session, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[slug]; ok {
		return session, nil
	}

	session := newSession(slug, r.opts, func(idle *Session) {
		r.remove(slug, idle)
	})
	r.sessions[slug] = session

	log.Info().Str("slug", slug).Int("sessions", len(r.sessions)).Msg("session created")
	return session, nil
}

// Get returns the session for slug without creating it.
func (r *Registry) Get(slug string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[slug]
	if !ok {
		return nil, fmt.Errorf("%s: %w", slug, ErrSessionNotFound)
	}
	return session, nil
}

// Delete closes and forgets the session for slug.
func (r *Registry) Delete(slug string) {
	r.mu.Lock()
	session, ok := r.sessions[slug]
	if ok {
		delete(r.sessions, slug)
	}
	remaining := len(r.sessions)
	r.mu.Unlock()

	if ok {
		session.Close()
		log.Info().Str("slug", slug).Int("sessions", remaining).Msg("session deleted")
	}
}

// remove deletes slug only while it still maps to session, so an idle timer of
// a replaced session cannot delete its successor.
func (r *Registry) remove(slug string, session *Session) {
	r.mu.Lock()
	current, ok := r.sessions[slug]
	r.mu.Unlock()

	if ok && current == session {
		r.Delete(slug)
	}
}

// List returns the summary of every live session ordered by slug.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	r.mu.Unlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, session := range sessions {
		summary, err := session.Summary()
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}

	slices.SortFunc(summaries, func(a, b Summary) int {
		return strings.Compare(a.Slug, b.Slug)
	})
	return summaries
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
