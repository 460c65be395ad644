package engine

import "context"

// runWorker serializes every venue-mutating pass: reconciles, fill
// reactions and mirror resyncs all run here and nowhere else. The
// channels it drains are fed by the dispatcher, which keeps event
// application decoupled from slow REST round-trips.
func (e *Engine) runWorker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-e.fillC:
			e.ReactToFill(ctx, f)
		case <-e.wake:
			e.Reconcile(ctx)
		case <-e.resyncC:
			e.Resync(ctx)
		}
	}
}
