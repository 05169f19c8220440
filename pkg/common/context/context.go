package context

import (
	"context"
)

// Merge returns a context carrying the values and deadline of primary that is
// also canceled when secondary is done. The returned CancelFunc releases the
// link between the two and must always be called.
func Merge(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
