package inscriptions

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaze-network/inscription-indexer/common"
	"github.com/gaze-network/inscription-indexer/core/indexer"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/config"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T, cleanups *atomic.Int32) *worker {
	t.Helper()
	w := newTestWorld(t, config.Config{})
	processor, err := NewProcessor(w.store, w.store, w.service, validator.New(w.chain, w.chain, nil), common.NetworkMainnet, config.Config{},
		[]func(context.Context) error{
			func(context.Context) error {
				cleanups.Add(1)
				return nil
			},
		},
	)
	require.NoError(t, err)
	return newWorker(
		indexer.New(processor, w.service, indexer.Config{PollingInterval: 10 * time.Millisecond}),
		indexer.NewSupervisor(processor, indexer.SupervisorConfig{Interval: 10 * time.Millisecond}),
	)
}

func TestWorkerShutdown(t *testing.T) {
	t.Run("never started", func(t *testing.T) {
		var cleanups atomic.Int32
		worker := newTestWorker(t, &cleanups)

		require.NoError(t, worker.ShutdownWithContext(context.Background()))
		assert.EqualValues(t, 1, cleanups.Load())
	})

	t.Run("running", func(t *testing.T) {
		var cleanups atomic.Int32
		worker := newTestWorker(t, &cleanups)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			_ = worker.Run(context.Background())
		}()
		require.Eventually(t, worker.started.Load, time.Second, time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, worker.ShutdownWithContext(ctx))

		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
		assert.EqualValues(t, 1, cleanups.Load())
	})
}
