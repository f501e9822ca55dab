// Package events publishes order lifecycle hooks to NATS so that services
// outside the API can follow orders as they are placed and paid.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/logging"
)

// Published lists the hook actions forwarded to the bus.
var Published = []string{
	hooks.AfterOrder,
	hooks.GuestAfterUpdateOrder,
	hooks.AfterCheckout,
}

type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

type recorder interface {
	EventPublished(hook string, err error)
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID         string                `json:"id"`
	Hook       string                `json:"hook"`
	OccurredAt time.Time             `json:"occurred_at"`
	Order      *domain.Order         `json:"order,omitempty"`
	Payment    *domain.PaymentResult `json:"payment,omitempty"`
}

type Publisher struct {
	conn    msgPublisher
	prefix  string
	metrics recorder
	now     func() time.Time
	logger  *zap.Logger
}

// Connect dials NATS with reconnect handling logged through logger.
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	logger = logging.OrNop(logger).Named("nats")
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
}

// NewPublisher publishes to subjects "<prefix>.<hook>". metrics may be nil.
func NewPublisher(conn msgPublisher, prefix string, metrics recorder, logger *zap.Logger) *Publisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "commerce"
	}
	return &Publisher{
		conn:    conn,
		prefix:  prefix,
		metrics: metrics,
		now:     time.Now,
		logger:  logging.OrNop(logger).Named("events"),
	}
}

// Register subscribes the publisher to every hook in Published.
func (p *Publisher) Register(reg *hooks.Registry) {
	for _, name := range Published {
		hook := name
		reg.AddAction(hook, func(ctx context.Context, args ...any) {
			p.publish(ctx, hook, args...)
		})
	}
}

// Subject returns the subject a hook is published on.
func (p *Publisher) Subject(hook string) string {
	return p.prefix + "." + hook
}

func (p *Publisher) publish(_ context.Context, hook string, args ...any) {
	env := Envelope{
		ID:         uuid.NewString(),
		Hook:       hook,
		OccurredAt: p.now().UTC(),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case *domain.Order:
			env.Order = v
		case *domain.PaymentResult:
			env.Payment = v
		}
	}

	err := p.send(env)
	if p.metrics != nil {
		p.metrics.EventPublished(hook, err)
	}
	if err != nil {
		// publishing never fails the request that fired the hook
		p.logger.Warn("publish event failed", zap.String("hook", hook), zap.Error(err))
	}
}

func (p *Publisher) send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.Subject(env.Hook))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	msg.Header.Set("Content-Type", "application/json")
	return p.conn.PublishMsg(msg)
}
