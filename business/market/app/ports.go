// Package app contains application services and port definitions for the market context.
package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crossarb/crossarb/business/market/domain"
)

// VenueGateway is the per-venue adapter contract. Implementations wrap
// venue-specific faults into the apperror taxonomy; ordinary market
// conditions never escape as panics.
type VenueGateway interface {
	// Name returns the venue identifier (e.g. "binance").
	Name() string

	// FetchQuote retrieves the current price, fee schedule and amount
	// precision for pair.
	FetchQuote(ctx context.Context, pair domain.Pair) (*domain.Quote, error)

	// RoundAmount floors amount to the venue's lot size for pair. When
	// no precision metadata is known the amount comes back unchanged.
	// Rounding never increases the amount.
	RoundAmount(pair domain.Pair, amount decimal.Decimal) decimal.Decimal

	// PlaceMarketOrder submits a market order. Callers must treat this
	// as fire-once per decision; implementations do not retry.
	PlaceMarketOrder(ctx context.Context, pair domain.Pair, side domain.Side, amount decimal.Decimal) (*domain.OrderResult, error)

	// CanTrade reports whether the venue supports order placement with
	// the current configuration.
	CanTrade() bool
}

// Registry maps venue names to gateways. It is assembled once at
// configuration time and immutable afterwards; iteration order is the
// configured venue order.
type Registry struct {
	order    []string
	gateways map[string]VenueGateway
}

// NewRegistry builds a registry from gateways in the given order.
func NewRegistry(gateways ...VenueGateway) (*Registry, error) {
	r := &Registry{
		gateways: make(map[string]VenueGateway, len(gateways)),
	}
	for _, gw := range gateways {
		name := gw.Name()
		if _, dup := r.gateways[name]; dup {
			return nil, fmt.Errorf("market: duplicate venue %q", name)
		}
		r.order = append(r.order, name)
		r.gateways[name] = gw
	}
	return r, nil
}

// Lookup returns the gateway for name.
func (r *Registry) Lookup(name string) (VenueGateway, bool) {
	gw, ok := r.gateways[name]
	return gw, ok
}

// Names returns venue names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the gateways in registration order.
func (r *Registry) All() []VenueGateway {
	out := make([]VenueGateway, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.gateways[name])
	}
	return out
}

// Subset returns a registry restricted to the given venues, keeping the
// original registration order. Unknown names are an error.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.gateways[name]; !ok {
			return nil, fmt.Errorf("market: unknown venue %q", name)
		}
		want[name] = true
	}

	sub := &Registry{gateways: make(map[string]VenueGateway, len(names))}
	for _, name := range r.order {
		if want[name] {
			sub.order = append(sub.order, name)
			sub.gateways[name] = r.gateways[name]
		}
	}
	return sub, nil
}

// Len returns the number of registered venues.
func (r *Registry) Len() int {
	return len(r.order)
}
