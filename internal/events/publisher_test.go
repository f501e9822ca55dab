package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
)

type captureConn struct {
	msgs []*nats.Msg
	err  error
}

func (c *captureConn) PublishMsg(m *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

type countingRecorder map[string]int

func (r countingRecorder) EventPublished(hook string, err error) {
	if err != nil {
		hook += ":error"
	}
	r[hook]++
}

func TestPublisher_ForwardsRegisteredHooks(t *testing.T) {
	conn := &captureConn{}
	rec := countingRecorder{}
	p := NewPublisher(conn, " shop. ", rec, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	reg := hooks.New()
	p.Register(reg)

	order := &domain.Order{ID: 12, OrderKey: "wc_order_x", Status: domain.OrderOnHold}
	reg.DoAction(context.Background(), hooks.AfterCheckout, order, &domain.PaymentResult{Gateway: "bacs", State: "paid"})
	reg.DoAction(context.Background(), hooks.PreOrder, order)

	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "shop.ln_wc_after_checkout", msg.Subject)
	assert.NotEmpty(t, msg.Header.Get(nats.MsgIdHdr))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, hooks.AfterCheckout, env.Hook)
	assert.Equal(t, fixed, env.OccurredAt)
	require.NotNil(t, env.Order)
	assert.Equal(t, int64(12), env.Order.ID)
	require.NotNil(t, env.Payment)
	assert.Equal(t, "bacs", env.Payment.Gateway)
	assert.Equal(t, 1, rec[hooks.AfterCheckout])
}

func TestPublisher_FailureIsSwallowed(t *testing.T) {
	rec := countingRecorder{}
	p := NewPublisher(&captureConn{err: errors.New("no responders")}, "", rec, nil)
	reg := hooks.New()
	p.Register(reg)

	assert.NotPanics(t, func() {
		reg.DoAction(context.Background(), hooks.AfterOrder, &domain.Order{ID: 1})
	})
	assert.Equal(t, 1, rec[hooks.AfterOrder+":error"])
	assert.Equal(t, "commerce.x", p.Subject("x"))
}
