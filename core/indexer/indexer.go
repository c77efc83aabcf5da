package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
)

const (
	DefaultPollingInterval = 15 * time.Second
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 5 * time.Second

	shutdownTimeout = 180 * time.Second
)

type Config struct {
	// PollingInterval between tip checks once the cursor has caught up.
	PollingInterval time.Duration

	// Confirmations a block needs on top of it before it is processed.
	Confirmations int64

	// RetryAttempts is the total number of attempts of a height, the first one included.
	RetryAttempts int

	// RetryDelay between two attempts of the same height.
	RetryDelay time.Duration
}

// Indexer is the block cursor. It walks heights in order, retries each height within a fixed budget
// and hands exhausted heights over to the [Supervisor] instead of stalling.
type Indexer struct {
	Processor BlockProcessor
	Tip       TipProvider
	config    Config

	nextHeight int64

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

func New(processor BlockProcessor, tip TipProvider, config Config) *Indexer {
	config.PollingInterval = utils.Default(config.PollingInterval, DefaultPollingInterval)
	config.RetryAttempts = utils.Default(config.RetryAttempts, DefaultRetryAttempts)
	config.RetryAttempts = max(config.RetryAttempts, 1)
	config.RetryDelay = utils.Default(config.RetryDelay, DefaultRetryDelay)
	if config.Confirmations < 0 {
		config.Confirmations = 0
	}
	return &Indexer{
		Processor: processor,
		Tip:       tip,
		config:    config,

		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (i *Indexer) Shutdown() error {
	return i.ShutdownWithContext(context.Background())
}

func (i *Indexer) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return i.ShutdownWithContext(ctx)
}

func (i *Indexer) ShutdownWithContext(ctx context.Context) (err error) {
	i.quitOnce.Do(func() {
		close(i.quit)
		select {
		case <-i.done:
		case <-time.After(shutdownTimeout):
			err = errors.Wrap(errs.Timeout, "indexer shutdown timeout")
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "indexer shutdown context canceled")
		}
	})
	return
}

func (i *Indexer) Run(ctx context.Context) (err error) {
	defer close(i.done)

	ctx = logger.WithContext(ctx,
		slogx.String("package", "indexer"),
		slogx.String("processor", i.Processor.Name()),
	)

	i.nextHeight, err = i.Processor.NextBlockHeight(ctx)
	if err != nil {
		return errors.Wrap(err, "can't init state, failed to get next block height")
	}
	logger.InfoContext(ctx, "Starting block cursor", slogx.Int64("next_height", i.nextHeight))

	// an in-flight attempt is abandoned on quit, attempts never commit partially
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-i.quit:
			cancel()
		case <-runCtx.Done():
		}
	}()

	ticker := time.NewTicker(i.config.PollingInterval)
	defer ticker.Stop()
	for {
		if err := i.process(runCtx); err != nil {
			if runCtx.Err() == nil {
				logger.ErrorContext(ctx, "Indexer failed while processing", err)
				return errors.Wrap(err, "process failed")
			}
		}

		select {
		case <-i.quit:
			logger.InfoContext(ctx, "Got quit signal, stopping indexer")
			if err := i.Processor.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to shutdown processor", err)
				return errors.Wrap(err, "processor shutdown failed")
			}
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logger.DebugContext(ctx, "Polling for new blocks")
		}
	}
}

// process advances the cursor up to the highest confirmed height.
func (i *Indexer) process(ctx context.Context) error {
	tip, err := i.Tip.GetBlockHeight(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to get chain tip, waiting for next polling interval", slogx.Error(err))
		return nil
	}
	target := tip - i.config.Confirmations
	if i.nextHeight > target {
		logger.DebugContext(ctx, "Cursor is caught up", slogx.Int64("tip", tip), slogx.Int64("next_height", i.nextHeight))
		return nil
	}

	for ; i.nextHeight <= target; i.nextHeight++ {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if err := i.processHeight(ctx, i.nextHeight); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// processHeight runs the retry budget of a height. An exhausted height is recorded as failed and
// the cursor moves on; only a failure to record it stops the cursor.
func (i *Indexer) processHeight(ctx context.Context, height int64) error {
	ctx = logger.WithContext(ctx, slogx.Int64("height", height))

	attempts := 0
	operation := func() error {
		attempts++
		err := i.Processor.ProcessBlock(ctx, height)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.WarnContext(ctx, "Block attempt failed, retrying",
			slogx.String("event", "block_retry"),
			slogx.Int("attempt", attempts),
			slogx.Duration("retry_in", next),
			slogx.Error(err),
		)
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(i.config.RetryDelay), uint64(i.config.RetryAttempts-1))
	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.WithStack(ctxErr)
	}

	failure := errors.Mark(errors.Wrapf(err, "block %d failed after %d attempts", height, attempts), errs.RetryExhausted)
	logger.ErrorContext(ctx, "Block exhausted its retry budget, handing over to supervisor", failure,
		slogx.String("event", "block_failed"),
		slogx.Int("attempts", attempts),
	)
	if err := i.Processor.RecordBlockFailure(ctx, height, failure); err != nil {
		return errors.Wrapf(err, "failed to record failure of block %d", height)
	}
	return nil
}
