package alerts

import (
	"context"
	"sync/atomic"
	"time"

	"stockwatch/pkg/errors"
	"stockwatch/pkg/kvstore"
	"stockwatch/pkg/logger"
)

// sweepGuard keeps sweeps of one kind from overlapping: an in-process flag
// for this replica and an optional lease for the whole deployment.
type sweepGuard struct {
	name    string
	running atomic.Bool
	locker  kvstore.Locker
	ttl     time.Duration
	log     *logger.Logger
}

// acquire returns ErrSweepInProgress when another sweep holds the guard
func (g *sweepGuard) acquire(ctx context.Context) (func(), error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, errors.Wrapf(errors.ErrSweepInProgress, "%s sweep", g.name)
	}
	if g.locker == nil {
		return func() { g.running.Store(false) }, nil
	}

	key := g.name + "_sweep"
	ok, err := g.locker.TryLock(ctx, key, g.ttl)
	if err != nil {
		g.running.Store(false)
		return nil, errors.Wrapf(err, "acquire %s sweep lease", g.name)
	}
	if !ok {
		g.running.Store(false)
		return nil, errors.Wrapf(errors.ErrSweepInProgress, "%s sweep lease held elsewhere", g.name)
	}

	return func() {
		// the sweep ctx may already be done; the lease must still be released
		if err := g.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			g.log.Warnw("Failed to release sweep lease", "sweep", g.name, "error", err)
		}
		g.running.Store(false)
	}, nil
}
