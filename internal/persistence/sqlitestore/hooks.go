package sqlitestore

import (
	"context"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

type queryTimerKey struct{}

// timingHooks satisfies sqlhooks.Hooks, logging every statement and its
// elapsed time at debug level.
type timingHooks struct{}

func (h *timingHooks) Before(ctx context.Context, query string, args ...any) (context.Context, error) {
	cclog.Debugf("[SQLITESTORE]> %s %q", query, args)
	return context.WithValue(ctx, queryTimerKey{}, time.Now()), nil
}

func (h *timingHooks) After(ctx context.Context, query string, args ...any) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimerKey{}).(time.Time); ok {
		cclog.Debugf("[SQLITESTORE]> took %s", time.Since(begin))
	}
	return ctx, nil
}
