package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &rest.Response{StatusCode: f.status, Body: "body"}, nil
}

type countingRecorder struct{ ok, failed int }

func (r *countingRecorder) MailSent(err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func placedOrder() *domain.Order {
	return &domain.Order{
		ID:         42,
		Currency:   "USD",
		TotalCents: 2599,
		Billing:    domain.Address{"email": "ada@example.com", "first_name": "Ada", "last_name": "Lovelace"},
		Items:      []domain.LineItem{{Name: "Mug", Quantity: 2, LineTotalCents: 2000}},
	}
}

func TestMailer_SendsConfirmationOnAfterOrder(t *testing.T) {
	client := &fakeSender{status: 202}
	rec := &countingRecorder{}
	m := newMailer(client, "shop@example.com", rec, nil)
	reg := hooks.New()
	m.Register(reg)

	reg.DoAction(context.Background(), hooks.AfterOrder, placedOrder())
	m.Wait()

	require.Len(t, client.sent, 1)
	msg := client.sent[0]
	assert.Equal(t, "Your order #42 has been received", msg.Subject)
	assert.Equal(t, "shop@example.com", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "ada@example.com", msg.Personalizations[0].To[0].Address)
	assert.Contains(t, msg.Content[0].Value, "2 x Mug  20.00 USD")
	assert.Contains(t, msg.Content[0].Value, "Total: 25.99 USD")
	assert.Equal(t, 1, rec.ok)
}

func TestMailer_SkipsOrdersWithoutEmail(t *testing.T) {
	client := &fakeSender{status: 202}
	m := newMailer(client, "shop@example.com", nil, nil)
	m.sendSync = true

	order := placedOrder()
	order.Billing = nil
	m.OrderPlaced(context.Background(), *order)
	assert.Empty(t, client.sent)
}

func TestMailer_Failures(t *testing.T) {
	rec := &countingRecorder{}
	m := newMailer(&fakeSender{status: 401}, "shop@example.com", rec, nil)
	m.sendSync = true
	m.OrderPlaced(context.Background(), *placedOrder())

	m = newMailer(&fakeSender{err: errors.New("dial tcp")}, "shop@example.com", rec, nil)
	m.sendSync = true
	m.OrderPlaced(context.Background(), *placedOrder())

	assert.Equal(t, 2, rec.failed)
}

func TestMailer_EscapesCustomerValuesInHTML(t *testing.T) {
	client := &fakeSender{status: 202}
	m := newMailer(client, "shop@example.com", nil, nil)
	m.sendSync = true

	order := placedOrder()
	order.Billing["first_name"] = `<a href="https://evil.example/login">Verify your account</a>`
	order.Items[0].Name = "<b>Mug</b>"
	m.OrderPlaced(context.Background(), *order)

	require.Len(t, client.sent, 1)
	require.Len(t, client.sent[0].Content, 2)
	body := client.sent[0].Content[1].Value
	assert.Equal(t, "text/html", client.sent[0].Content[1].Type)
	assert.NotContains(t, body, "<a href")
	assert.NotContains(t, body, "<b>")
	assert.Contains(t, body, "&lt;a href=&#34;https://evil.example/login&#34;&gt;")
	assert.Contains(t, body, "2 &times; &lt;b&gt;Mug&lt;/b&gt;: 20.00 USD")
	assert.Contains(t, body, "Total: 25.99 USD")
}
