package di

import "fmt"

// Token is a typed handle into the container. The name must be unique
// across all modules.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// String returns the token name.
func (t Token[T]) String() string {
	return t.name
}

// RegisterToken registers a lazy, type-safe factory for token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves token and panics on a missing or mistyped service.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc := sr.MustGet(token.name)
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, not the registered type", token.name, svc))
	}
	return typed
}
