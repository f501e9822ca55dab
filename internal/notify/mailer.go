// Package notify sends transactional email for placed orders.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"lean-commerce/internal/cartops"
	"lean-commerce/internal/domain"
	"lean-commerce/internal/hooks"
	"lean-commerce/internal/logging"
)

const sendTimeout = 10 * time.Second

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type recorder interface {
	MailSent(err error)
}

// Mailer sends an order confirmation after an order is placed. Sends run in
// the background; Wait blocks until they finish.
type Mailer struct {
	client   sender
	from     *mail.Email
	metrics  recorder
	logger   *zap.Logger
	wg       sync.WaitGroup
	sendSync bool
}

func NewSendGrid(apiKey, from string, metrics recorder, logger *zap.Logger) *Mailer {
	return newMailer(sendgrid.NewSendClient(apiKey), from, metrics, logger)
}

func newMailer(client sender, from string, metrics recorder, logger *zap.Logger) *Mailer {
	return &Mailer{
		client:  client,
		from:    mail.NewEmail("Lean Commerce", from),
		metrics: metrics,
		logger:  logging.OrNop(logger).Named("mailer"),
	}
}

// Register sends a confirmation on every placed order.
func (m *Mailer) Register(reg *hooks.Registry) {
	reg.AddAction(hooks.AfterOrder, func(ctx context.Context, args ...any) {
		if len(args) == 0 {
			return
		}
		order, ok := args[0].(*domain.Order)
		if !ok || order == nil {
			return
		}
		m.OrderPlaced(ctx, *order)
	})
}

// OrderPlaced queues the confirmation for order. Orders without a billing
// email are skipped.
func (m *Mailer) OrderPlaced(ctx context.Context, order domain.Order) {
	to := strings.TrimSpace(order.Billing["email"])
	if to == "" {
		m.logger.Debug("order has no billing email", zap.Int64("order_id", order.ID))
		return
	}
	ctx = context.WithoutCancel(ctx)
	if m.sendSync {
		m.send(ctx, to, order)
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.send(ctx, to, order)
	}()
}

// Wait blocks until queued sends complete.
func (m *Mailer) Wait() {
	m.wg.Wait()
}

func (m *Mailer) send(ctx context.Context, to string, order domain.Order) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	name := strings.TrimSpace(order.Billing["first_name"] + " " + order.Billing["last_name"])
	subject := fmt.Sprintf("Your order #%d has been received", order.ID)
	text, body, err := renderConfirmation(name, order)
	if err == nil {
		err = m.deliver(ctx, mail.NewSingleEmail(m.from, subject, mail.NewEmail(name, to), text, body))
	}
	if m.metrics != nil {
		m.metrics.MailSent(err)
	}
	if err != nil {
		m.logger.Warn("order confirmation failed", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}
	m.logger.Info("order confirmation sent", zap.Int64("order_id", order.ID))
}

func (m *Mailer) deliver(ctx context.Context, message *mail.SGMailV3) error {
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(
	`<p>Hi {{.Name}},</p><p>Thanks for your order #{{.Order.ID}}.</p><ul>` +
		`{{range .Lines}}<li>{{.Quantity}} &times; {{.Name}}: {{.Amount}} {{$.Order.Currency}}</li>{{end}}` +
		`</ul><p><strong>Total: {{.Total}} {{.Order.Currency}}</strong></p>`))

type confirmationLine struct {
	Quantity int
	Name     string
	Amount   string
}

// renderConfirmation returns the plain text and HTML bodies. Customer supplied
// values are escaped in the HTML part.
func renderConfirmation(name string, order domain.Order) (string, string, error) {
	if name == "" {
		name = "there"
	}
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThanks for your order #%d.\n\n", name, order.ID)
	lines := make([]confirmationLine, 0, len(order.Items))
	for _, it := range order.Items {
		line := confirmationLine{Quantity: it.Quantity, Name: it.Name, Amount: cartops.FormatCents(it.LineTotalCents)}
		fmt.Fprintf(&text, "%d x %s  %s %s\n", line.Quantity, line.Name, line.Amount, order.Currency)
		lines = append(lines, line)
	}
	total := cartops.FormatCents(order.TotalCents)
	fmt.Fprintf(&text, "\nTotal: %s %s\n", total, order.Currency)

	var body bytes.Buffer
	err := confirmationHTML.Execute(&body, struct {
		Name  string
		Order domain.Order
		Lines []confirmationLine
		Total string
	}{name, order, lines, total})
	if err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return text.String(), body.String(), nil
}
