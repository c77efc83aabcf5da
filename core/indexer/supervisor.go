package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
)

const (
	DefaultSupervisorInterval  = time.Minute
	DefaultSupervisorBatchSize = 10
)

type SupervisorConfig struct {
	// Interval between two re-drive rounds.
	Interval time.Duration

	// BatchSize is the number of failed heights, and of deferred heights, re-driven per round.
	BatchSize int
}

// Supervisor periodically re-drives failed and deferred heights, out of order and independently
// of the cursor. Each height gets a single attempt per round.
type Supervisor struct {
	Processor BlockProcessor
	config    SupervisorConfig

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func NewSupervisor(processor BlockProcessor, config SupervisorConfig) *Supervisor {
	config.Interval = utils.Default(config.Interval, DefaultSupervisorInterval)
	config.BatchSize = utils.Default(config.BatchSize, DefaultSupervisorBatchSize)
	return &Supervisor{
		Processor: processor,
		config:    config,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *Supervisor) Shutdown() error {
	return s.ShutdownWithContext(context.Background())
}

func (s *Supervisor) ShutdownWithContext(ctx context.Context) (err error) {
	s.quitOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrap(errs.Timeout, "supervisor shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "supervisor shutdown context canceled")
		}
	})
	return
}

func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.done)

	ctx = logger.WithContext(ctx,
		slogx.String("package", "indexer"),
		slogx.String("worker", "supervisor"),
		slogx.String("processor", s.Processor.Name()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.quit:
			cancel()
		case <-runCtx.Done():
		}
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping supervisor")
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Redrive(runCtx); err != nil && runCtx.Err() == nil {
				logger.ErrorContext(ctx, "Supervisor failed while re-driving failed blocks", err)
				return errors.Wrap(err, "redrive failed")
			}
		}
	}
}

// Redrive runs one re-drive round and returns the number of recovered heights. Failed heights
// go first, so the deferred heights they release are processed in the same round.
func (s *Supervisor) Redrive(ctx context.Context) (int, error) {
	blocks, err := s.Processor.ListFailedBlocks(ctx, s.config.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list failed blocks")
	}

	recovered := 0
	for _, block := range blocks {
		ctx := logger.WithContext(ctx,
			slogx.Int64("height", block.Height),
			slogx.Int("retry_count", int(block.RetryCount)),
		)
		logger.InfoContext(ctx, "Re-driving failed block", slogx.String("event", "block_redrive"))
		ok, err := s.redrive(ctx, block.Height)
		if err != nil {
			return recovered, errors.WithStack(err)
		}
		if ok {
			recovered++
			logger.InfoContext(ctx, "Recovered failed block", slogx.String("event", "block_recovered"))
		}
	}

	deferred, err := s.Processor.ListDeferredBlocks(ctx, s.config.BatchSize)
	if err != nil {
		return recovered, errors.Wrap(err, "failed to list deferred blocks")
	}
	for _, height := range deferred {
		ctx := logger.WithContext(ctx, slogx.Int64("height", height))
		logger.InfoContext(ctx, "Re-driving deferred block", slogx.String("event", "block_redrive_deferred"))
		ok, err := s.redrive(ctx, height)
		if err != nil {
			return recovered, errors.WithStack(err)
		}
		if ok {
			recovered++
		}
	}

	if len(blocks)+len(deferred) > 0 {
		logger.InfoContext(ctx, "Supervisor round finished",
			slogx.Int("failed", len(blocks)),
			slogx.Int("deferred", len(deferred)),
			slogx.Int("recovered", recovered),
		)
	}
	return recovered, nil
}

// redrive runs a single attempt of height and records its failure. The returned error is only
// set when the round must stop.
func (s *Supervisor) redrive(ctx context.Context, height int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}
	err := s.Processor.ProcessBlock(ctx, height)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, errors.WithStack(ctx.Err())
	}

	logger.WarnContext(ctx, "Re-drive of block failed", slogx.Error(err))
	if err := s.Processor.RecordBlockFailure(ctx, height, err); err != nil {
		return false, errors.Wrapf(err, "failed to record failure of block %d", height)
	}
	return false, nil
}
