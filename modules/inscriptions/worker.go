package inscriptions

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/core/indexer"
	"golang.org/x/sync/errgroup"
)

var _ indexer.IndexerWorker = (*worker)(nil)

// worker runs the block cursor and the supervisor of failed heights side by side.
type worker struct {
	indexer    *indexer.Indexer
	supervisor *indexer.Supervisor
	started    atomic.Bool
}

func newWorker(indexer *indexer.Indexer, supervisor *indexer.Supervisor) *worker {
	return &worker{
		indexer:    indexer,
		supervisor: supervisor,
	}
}

// Run returns when both loops stopped. A failing loop stops the other one.
func (w *worker) Run(ctx context.Context) error {
	w.started.Store(true)
	group, groupctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return errors.Wrap(w.indexer.Run(groupctx), "indexer stopped")
	})
	group.Go(func() error {
		return errors.Wrap(w.supervisor.Run(groupctx), "supervisor stopped")
	})
	return errors.WithStack(group.Wait())
}

// ShutdownWithContext stops the supervisor before the cursor. The cursor shuts the processor
// down, which releases the storage both loops share. A worker that never ran, e.g. in API only
// mode, shuts the processor down directly.
func (w *worker) ShutdownWithContext(ctx context.Context) error {
	if !w.started.Load() {
		return errors.Wrap(w.indexer.Processor.Shutdown(ctx), "failed to shutdown processor")
	}
	if err := w.supervisor.ShutdownWithContext(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown supervisor")
	}
	if err := w.indexer.ShutdownWithContext(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown indexer")
	}
	return nil
}
