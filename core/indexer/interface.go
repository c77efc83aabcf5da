package indexer

import (
	"context"
)

// FailedBlock is a height that exhausted its retry budget.
type FailedBlock struct {
	Height     int64
	RetryCount int32
	LastError  string
}

// BlockProcessor processes one block height at a time. ProcessBlock must be atomic: a failed attempt
// leaves no partial state behind, so it can be retried or re-driven any number of times.
type BlockProcessor interface {
	Name() string

	// NextBlockHeight returns the height the cursor resumes from.
	NextBlockHeight(ctx context.Context) (int64, error)

	ProcessBlock(ctx context.Context, height int64) error

	// RecordBlockFailure marks the height as failed and records it for the supervisor.
	RecordBlockFailure(ctx context.Context, height int64, cause error) error

	// ListFailedBlocks returns up to limit failed heights, least recently attempted first.
	ListFailedBlocks(ctx context.Context, limit int) ([]FailedBlock, error)

	// ListDeferredBlocks returns up to limit completed heights that must be processed again
	// because a failed height they depend on recovered.
	ListDeferredBlocks(ctx context.Context, limit int) ([]int64, error)

	Shutdown(ctx context.Context) error
}

// TipProvider returns the height of the chain tip.
type TipProvider interface {
	GetBlockHeight(ctx context.Context) (int64, error)
}

// IndexerWorker is a long running worker of a module. Run blocks until the worker stops or
// ctx is done, ShutdownWithContext stops it gracefully.
type IndexerWorker interface {
	Run(ctx context.Context) error
	ShutdownWithContext(ctx context.Context) error
}
