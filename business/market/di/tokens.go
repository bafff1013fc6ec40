// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/crossarb/crossarb/business/market/app"
	"github.com/crossarb/crossarb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry   = di.NewToken[*app.Registry]("market.Registry")
	Aggregator = di.NewToken[*app.Aggregator]("market.Aggregator")
)

// Helper functions for type-safe access
func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}
