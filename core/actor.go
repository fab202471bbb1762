package core

import (
	"context"
)

// ActorFunc adapts a function to the Actor interface. The function's
// closure is the actor's private state.
type ActorFunc func(ctx context.Context, env Envelope) ([]Envelope, error)

// Receive calls f.
func (f ActorFunc) Receive(ctx context.Context, env Envelope) ([]Envelope, error) {
	return f(ctx, env)
}

// Emit is a convenience for building a reaction's return value.
func Emit(envs ...Envelope) []Envelope {
	return envs
}

// Sink returns an actor that accepts everything and emits nothing.
func Sink() Actor {
	return ActorFunc(func(context.Context, Envelope) ([]Envelope, error) {
		return nil, nil
	})
}
