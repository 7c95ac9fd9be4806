// Package notify fans club and event notifications out to subscribers.
//
// Publishing is best-effort: a Bus hands each message to every sink
// (Redis pub/sub, the websocket hub) and logs sink failures at Warn without
// reporting them to the caller. A failed publish never fails the operation
// that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics.
const (
	TopicClubs  = "club-updates"
	TopicEvents = "event-updates"
)

// KnownTopic reports whether topic is one the application publishes on.
func KnownTopic(topic string) bool {
	return topic == TopicClubs || topic == TopicEvents
}

// Type identifies what happened.
type Type string

const (
	ClubCreated        Type = "club-created"
	MembershipRequest  Type = "membership-request"
	MembershipApproved Type = "membership-approved"
	EventCreated       Type = "event-created"
	EventApproved      Type = "event-approved"
	EventRejected      Type = "event-rejected"
	EventCancelled     Type = "event-cancelled"
)

// Message is the JSON payload delivered to subscribers.
type Message struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	ClubID     string    `json:"clubId,omitempty"`
	ClubName   string    `json:"clubName,omitempty"`
	EventID    string    `json:"eventId,omitempty"`
	Title      string    `json:"title,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	UserName   string    `json:"userName,omitempty"`
	Organizer  string    `json:"organizer,omitempty"`
	ApprovedBy string    `json:"approvedBy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher sends a message on a topic. Implementations never fail the
// caller.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message)
}

// Sink is one delivery channel behind a Bus.
type Sink interface {
	Name() string
	Send(ctx context.Context, topic string, payload []byte) error
}

// Bus is a Publisher that delivers to every registered sink.
type Bus struct {
	sinks []Sink
	log   *zap.Logger
	now   func() time.Time
}

// NewBus returns a Bus over sinks. Nil sinks are skipped.
func NewBus(log *zap.Logger, sinks ...Sink) *Bus {
	b := &Bus{log: log, now: time.Now}
	for _, s := range sinks {
		if s != nil {
			b.sinks = append(b.sinks, s)
		}
	}
	return b
}

// Publish stamps msg with an id and timestamp if missing and hands it to
// every sink. Sinks get their own deadline detached from ctx's
// cancellation, so a request that is about to time out still notifies.
func (b *Bus) Publish(ctx context.Context, topic string, msg Message) {
	if len(b.sinks) == 0 {
		return
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = b.now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.log.Warn("notification encode failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	base := context.WithoutCancel(ctx)
	for _, s := range b.sinks {
		sctx, cancel := context.WithTimeout(base, timeouts.Short())
		err := s.Send(sctx, topic, payload)
		cancel()
		if err != nil {
			b.log.Warn("notification publish failed",
				zap.String("sink", s.Name()),
				zap.String("topic", topic),
				zap.String("type", string(msg.Type)),
				zap.Error(err))
		}
	}
}

type discard struct{}

func (discard) Publish(context.Context, string, Message) {}

// Discard drops every message.
var Discard Publisher = discard{}
