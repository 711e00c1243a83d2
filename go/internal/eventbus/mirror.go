// Package eventbus mirrors session events to NATS JetStream.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/petitbac/go/internal/game"
)

const DefaultQueueSize = 1024

// Message is one event ready to be published.
type Message struct {
	Subject   string
	EventID   uuid.UUID
	EventType string
	Slug      string
	Data      []byte
}

// envelope is the JSON body of a mirrored event.
type envelope struct {
	EventID   uuid.UUID       `json:"eventId"`
	EventType string          `json:"eventType"`
	Session   string          `json:"session"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Mirror is a game.EventSink queueing events for a background publisher.
// Record never blocks: events are dropped when the queue is full.
type Mirror struct {
	publisher     Publisher
	subjectPrefix string
	clock         clockwork.Clock
	queue         chan Message
	dropped       atomic.Uint64
}

func NewMirror(publisher Publisher, subjectPrefix string, queueSize int, clock clockwork.Clock) *Mirror {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Mirror{
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
		clock:         clock,
		queue:         make(chan Message, queueSize),
	}
}

// Record serializes the event right away, since its payload may point at
// live session state, and queues it.
func (m *Mirror) Record(slug string, event game.Event) {
	msg, err := m.message(slug, event)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Str("event", string(event.Name)).Msg("failed to encode event for the bus")
		return
	}

	select {
	case m.queue <- msg:
	default:
		m.dropped.Add(1)
		log.Warn().Str("slug", slug).Str("event", string(event.Name)).Msg("event bus queue full, dropping event")
	}
}

func (m *Mirror) message(slug string, event game.Event) (Message, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.New()
	data, err := json.Marshal(envelope{
		EventID:   id,
		EventType: string(event.Name),
		Session:   slug,
		Timestamp: m.clock.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return Message{}, fmt.Errorf("marshal envelope: %w", err)
	}

	return Message{
		Subject:   Subject(m.subjectPrefix, slug, string(event.Name)),
		EventID:   id,
		EventType: string(event.Name),
		Slug:      slug,
		Data:      data,
	}, nil
}

// Run publishes queued events until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	log.Info().Str("subject_prefix", m.subjectPrefix).Msg("event bus mirror started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("dropped", m.dropped.Load()).Msg("event bus mirror stopped")
			return
		case msg := <-m.queue:
			if err := m.publisher.Publish(ctx, msg); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to publish event")
			}
		}
	}
}

// Dropped returns how many events were lost to a full queue.
func (m *Mirror) Dropped() uint64 {
	return m.dropped.Load()
}

// Subject returns the subject of an event: prefix, slug token, event name.
func Subject(prefix, slug, event string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, SubjectToken(slug), event)
}

// SubjectToken maps a slug onto a single NATS subject token. Characters
// outside [A-Za-z0-9_-] become underscores.
func SubjectToken(slug string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, slug)
	if token == "" {
		return "_"
	}
	return token
}
