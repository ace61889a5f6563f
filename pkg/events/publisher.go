// Package events publishes engagement facts for downstream consumers
// (analytics, fan-out workers). Publishing is fire-and-forget: the store
// stays the source of truth.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"anoa.com/socialfeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const subjectPrefix = "socialfeed.engagement."

type EngagementEvent struct {
	Action    string    `json:"action"` // liked, unliked, reposted, unreposted, commented
	ActorID   uuid.UUID `json:"actor_id"`
	PostID    uuid.UUID `json:"post_id"`
	AuthorID  uuid.UUID `json:"author_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func Subject(action string) string {
	return subjectPrefix + action
}

type Publisher interface {
	PublishEngagement(evt EngagementEvent) error
	Close()
}

type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

type natsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(cfg Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Name("socialfeed"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.L().Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.L().Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) PublishEngagement(evt EngagementEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal engagement event: %w", err)
	}
	return p.conn.Publish(Subject(evt.Action), payload)
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// Nop discards every event. Used when NATS_URL is unset.
type Nop struct{}

func (Nop) PublishEngagement(EngagementEvent) error { return nil }
func (Nop) Close()                                  {}
