// Package hooks is a registry of named extension points. Actions observe
// in-flight data; filters may replace it. Callbacks run synchronously in
// registration order.
package hooks

import (
	"context"
	"sync"
)

// Action hook names.
const (
	PreOrder               = "ln_wc_pre_order"
	AfterOrder             = "ln_wc_after_order"
	GuestPreUpdateOrder    = "ln_wc_pre_update_guest_order"
	GuestAfterUpdateOrder  = "ln_wc_after_update_guest_order"
	PreMultipleCartItems   = "ln_wc_pre_multiple_cart_items"
	AfterMultipleCartItems = "ln_wc_after_multiple_cart_items"
	PreCheckout            = "ln_wc_pre_checkout"
	AfterCheckout          = "ln_wc_after_checkout"
)

// Filter hook names.
const (
	OrderStatuses = "ln_wc_order_statuses"
	OrderFormat   = "ln_wc_order_format"
)

// Action observes an event. Its outcome never influences control flow.
type Action func(ctx context.Context, args ...any)

// Filter receives the current value and returns the value passed to the next filter.
type Filter func(ctx context.Context, value any, args ...any) any

type Registry struct {
	mu      sync.RWMutex
	actions map[string][]Action
	filters map[string][]Filter
}

func New() *Registry {
	return &Registry{
		actions: make(map[string][]Action),
		filters: make(map[string][]Filter),
	}
}

func (r *Registry) AddAction(name string, fn Action) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = append(r.actions[name], fn)
}

func (r *Registry) AddFilter(name string, fn Filter) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = append(r.filters[name], fn)
}

// DoAction invokes every action registered under name. A nil registry is a no-op.
func (r *Registry) DoAction(ctx context.Context, name string, args ...any) {
	if r == nil {
		return
	}
	r.mu.RLock()
	actions := append([]Action(nil), r.actions[name]...)
	r.mu.RUnlock()
	for _, fn := range actions {
		fn(ctx, args...)
	}
}

// ApplyFilters threads value through every filter registered under name.
func (r *Registry) ApplyFilters(ctx context.Context, name string, value any, args ...any) any {
	if r == nil {
		return value
	}
	r.mu.RLock()
	filters := append([]Filter(nil), r.filters[name]...)
	r.mu.RUnlock()
	for _, fn := range filters {
		value = fn(ctx, value, args...)
	}
	return value
}

// HasAction reports whether any action is registered under name.
func (r *Registry) HasAction(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[name]) > 0
}
