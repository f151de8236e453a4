package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
)

// Dispatch runs handler in a new goroutine. The goroutine gets a fresh
// context that keeps the caller's logger but not its cancellation, so work
// started from a request outlives the response. Errors and panics are logged.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := ctxlog.With(context.Background(), ctxlog.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ctxlog.From(bgCtx).Error("Panic in async handler",
					"recover", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := handler(bgCtx); err != nil {
			ctxlog.From(bgCtx).Error("Error in async handler", "error", err)
		}
	}()
}
