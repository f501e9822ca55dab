package payment

import (
	"context"

	"lean-commerce/internal/domain"
)

// Offline is a gateway that takes payment outside the API. Processing only
// moves the order to the status that awaits the offline payment.
type Offline struct {
	id     string
	title  string
	status string
}

func NewOffline(id, title, status string) *Offline {
	return &Offline{id: id, title: title, status: status}
}

// BankTransfer holds the order until the transfer is reconciled.
func BankTransfer() *Offline {
	return NewOffline("bacs", "Direct bank transfer", domain.OrderOnHold)
}

// Cheque holds the order until the cheque clears.
func Cheque() *Offline {
	return NewOffline("cheque", "Check payments", domain.OrderOnHold)
}

// CashOnDelivery lets the order be fulfilled immediately.
func CashOnDelivery() *Offline {
	return NewOffline("cod", "Cash on delivery", domain.OrderProcessing)
}

func (g *Offline) ID() string    { return g.id }
func (g *Offline) Title() string { return g.title }

func (g *Offline) Process(_ context.Context, order *domain.Order) (*domain.PaymentResult, error) {
	return &domain.PaymentResult{
		Result:  ResultSuccess,
		OrderID: order.ID,
		Status:  g.status,
		Gateway: g.id,
	}, nil
}
