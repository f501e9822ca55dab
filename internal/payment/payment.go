// Package payment holds the payment gateways an order can be paid with.
package payment

import (
	"context"
	"sort"
	"sync"

	"lean-commerce/internal/domain"
)

// Result values reported by gateways.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Gateway processes payment for an order. A nil result with a nil error
// means the gateway declined to produce a result.
type Gateway interface {
	ID() string
	Title() string
	Process(ctx context.Context, order *domain.Order) (*domain.PaymentResult, error)
}

// Registry maps gateway ids to implementations. Which gateways are enabled,
// and in what order, is configuration and lives elsewhere.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds g, replacing any gateway with the same id. Nil gateways are ignored.
func (r *Registry) Register(g Gateway) {
	if g == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.ID()] = g
}

func (r *Registry) Get(id string) (Gateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[id]
	return g, ok
}

// IDs lists the registered gateway ids in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.gateways))
	for id := range r.gateways {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
