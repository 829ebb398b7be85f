// Package events publishes activity events after successful mutations.
// Delivery is best effort: failures are logged and never returned.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/notesapp/apiserver/internal/mq"
)

// Event types.
const (
	UserRegistered    = "user.registered"
	UserRoleChanged   = "user.role_changed"
	UserStatusChanged = "user.status_changed"
	NoteCreated       = "note.created"
	NoteUpdated       = "note.updated"
	NoteDeleted       = "note.deleted"
	NotesExported     = "notes.exported"
)

const (
	typeAttribute  = "event_type"
	publishTimeout = 5 * time.Second
)

// Event is the JSON document published for every activity.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ActorID    int            `json:"actor_id"`
	SubjectID  int            `json:"subject_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New returns an event stamped with a fresh id and the current time.
func New(eventType string, actorID, subjectID int, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher accepts events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// BrokerPublisher encodes events as JSON and sends them to a single channel.
type BrokerPublisher struct {
	backend mq.Backend
	channel string
	logger  zerolog.Logger
}

// NewBrokerPublisher returns Nop when backend is nil.
func NewBrokerPublisher(backend mq.Backend, channel string, logger zerolog.Logger) Publisher {
	if backend == nil {
		return Nop{}
	}
	return &BrokerPublisher{
		backend: backend,
		channel: channel,
		logger:  logger.With().Str("component", "events").Str("channel", channel).Logger(),
	}
}

// Publish outlives request cancellation so that a client disconnecting
// right after a committed write does not drop its event.
func (p *BrokerPublisher) Publish(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", event.Type).Msg("encode event failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	id, err := p.backend.Publish(ctx, p.channel, data, map[string]string{
		typeAttribute:           event.Type,
		mq.ContentTypeAttribute: "application/json",
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("publish event failed")
		return
	}
	p.logger.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Str("message_id", id).Msg("event published")
}

// Decode parses a delivered message body.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
