// Package events publishes object lifecycle events to NATS. Delivery is
// best effort: a failed publish is logged and dropped, never surfaced to
// the request that triggered it. Consumers subscribe per tenant via
// subject wildcards.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/collabd/internal/logging"
	"github.com/fyrsmithlabs/collabd/internal/objectstore"
)

// Event kinds carried in the subject's final token.
const (
	EventCreated = "created"
	EventDeleted = "deleted"
)

// Event is the published payload.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`
	// ObjectID is the collaboration object the event concerns.
	ObjectID string `json:"objectId"`
	// Tenant owns the object.
	Tenant string `json:"tenant"`
	// Type is the object type.
	Type string `json:"type"`
	// Event is EventCreated or EventDeleted.
	Event string `json:"event"`
	// At is the event time.
	At time.Time `json:"at"`
}

// Config configures the event publisher.
type Config struct {
	// URL is the NATS server address. Empty disables publishing.
	URL string
	// SubjectPrefix is the first subject token.
	SubjectPrefix string
	// PublishWait bounds the flush on Close.
	PublishWait time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "collab"
	}
	if c.PublishWait == 0 {
		c.PublishWait = 2 * time.Second
	}
}

// Publisher emits object lifecycle events. The zero-URL publisher is
// disabled and every method is a no-op, so callers never branch on
// whether eventing is configured.
type Publisher struct {
	nc     *nats.Conn
	logger *logging.Logger
	prefix string
	wait   time.Duration
	now    func() time.Time
}

// NewPublisher connects to NATS, or returns a disabled publisher when no
// URL is configured.
func NewPublisher(cfg *Config, logger *logging.Logger) (*Publisher, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	cfg.ApplyDefaults()

	p := &Publisher{
		logger: logger.Named("events"),
		prefix: cfg.SubjectPrefix,
		wait:   cfg.PublishWait,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if cfg.URL == "" {
		p.logger.Info(context.Background(), "object events disabled, no broker configured")
		return p, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("collabd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	p.nc = nc
	p.logger.Info(context.Background(), "connected to NATS", zap.String("url", cfg.URL))
	return p, nil
}

// Enabled reports whether events are actually published.
func (p *Publisher) Enabled() bool {
	return p.nc != nil
}

// ObjectCreated publishes a created event for the object.
func (p *Publisher) ObjectCreated(ctx context.Context, obj *objectstore.CollaborationObject) {
	p.publish(ctx, EventCreated, obj)
}

// ObjectDeleted publishes a deleted event for the object.
func (p *Publisher) ObjectDeleted(ctx context.Context, obj *objectstore.CollaborationObject) {
	p.publish(ctx, EventDeleted, obj)
}

func (p *Publisher) publish(ctx context.Context, kind string, obj *objectstore.CollaborationObject) {
	if p.nc == nil {
		return
	}

	event := Event{
		ID:       uuid.NewString(),
		ObjectID: obj.ID,
		Tenant:   obj.Tenant,
		Type:     string(obj.Type),
		Event:    kind,
		At:       p.now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn(ctx, "failed to encode object event",
			zap.String("event", kind), zap.String("object_id", obj.ID), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("%s.%s.object.%s", p.prefix, subjectToken(obj.Tenant), kind)
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn(ctx, "failed to publish object event",
			zap.String("subject", subject), zap.String("object_id", obj.ID), zap.Error(err))
	}
}

// Close flushes pending events and drops the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.FlushTimeout(p.wait); err != nil {
		p.logger.Warn(context.Background(), "failed to flush pending events", zap.Error(err))
	}
	p.nc.Close()
	p.logger.Info(context.Background(), "event publisher closed")
}

// subjectToken makes a tenant id safe for use as a NATS subject token.
// Tenants are caller-chosen strings; token separators and wildcards must
// not leak into the subject.
func subjectToken(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, tenant)
}
