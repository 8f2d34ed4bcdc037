package async

import (
	"context"

	"go.uber.org/fx"
)

// Runner executes best-effort side effects after the triggering write has
// committed. Implementations must detach the effect from the request
// context so a client disconnect cannot drop it.
type Runner interface {
	Go(ctx context.Context, fn func(ctx context.Context))
}

type backgroundRunner struct{}

// NewRunner returns the production runner. Effects run on their own
// goroutine with cancellation stripped from the parent context; values
// (request id, identity) are preserved for logging.
func NewRunner() Runner { return backgroundRunner{} }

func (backgroundRunner) Go(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)
	go fn(detached)
}

// SyncRunner runs effects inline. Tests use it to observe side effects
// deterministically.
type SyncRunner struct{}

func (SyncRunner) Go(ctx context.Context, fn func(ctx context.Context)) {
	fn(context.WithoutCancel(ctx))
}

// Module provides the background runner.
var Module = fx.Module("async", fx.Provide(NewRunner))
