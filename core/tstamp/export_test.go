package tstamp

import (
	"context"
)

func (e *Engine) Reconcile(ctx context.Context) {
	e.reconcile(ctx)
}

func (e *Engine) PendingPackets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pktRing.count()
}

func (e *Engine) QueuedTimestamps() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tsRing.count()
}
