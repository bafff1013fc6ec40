// Package di provides a minimal service registry used by the monolith
// container. Services are registered eagerly or as lazy factories and
// resolved by token.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under token, building it from
	// its factory on first use, or nil when the token is unknown.
	Get(token string) any
	// MustGet returns the service registered under token and panics when
	// it is missing. Used during startup wiring where a missing service
	// is a programming error.
	MustGet(token string) any
}

// Container is the full read/write contract.
type Container interface {
	ServiceRegistry
	// Register stores a ready service under token, replacing any previous one.
	Register(token string, service any)
	// RegisterFactory stores a lazy constructor under token. The factory
	// runs at most once, on first Get.
	RegisterFactory(token string, factory func(ServiceRegistry) any)
}

type container struct {
	mu        sync.RWMutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(token string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[token] = service
}

func (c *container) RegisterFactory(token string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[token] = factory
}

func (c *container) Get(token string) any {
	c.mu.RLock()
	if svc, ok := c.services[token]; ok {
		c.mu.RUnlock()
		return svc
	}
	factory, ok := c.factories[token]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	// Build outside the lock so factories can resolve their own
	// dependencies through Get.
	svc := factory(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.services[token]; ok {
		return existing
	}
	c.services[token] = svc
	delete(c.factories, token)
	return svc
}

func (c *container) MustGet(token string) any {
	svc := c.Get(token)
	if svc == nil {
		panic(fmt.Sprintf("di: service %q not registered", token))
	}
	return svc
}
