package inscriptions

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/protocol"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	cstream "github.com/planxnx/concurrent-stream"
)

// validateBlock classifies the inscriptions of a block and validates the candidates in three
// phases, so in-block dependencies resolve by sequence: deploys, then mints and bitmaps, then
// parcels. Accepted proposals of a phase are visible to the following phases.
func (p *Processor) validateBlock(ctx context.Context, height int64, inscriptions []types.Inscription) ([]validator.Outcome, error) {
	type txSource struct {
		txHash   chainhash.Hash
		sourceId types.InscriptionId
	}
	mintsInTx := make(map[txSource]int)

	phases := make([][]validator.Task, 3)
	for _, inscription := range inscriptions {
		sequence, err := types.NewSequence(height, inscription.RevealIndex)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to sequence inscription %s", inscription.Id)
		}
		candidate := protocol.Classify(inscription.Id, inscription.MimeType, inscription.Content)
		task := validator.Task{
			Inscription: inscription,
			Candidate:   candidate,
			Sequence:    sequence,
		}
		if candidate.Kind == protocol.CandidateMint {
			key := txSource{txHash: inscription.Id.TxHash, sourceId: candidate.Mint.SourceId}
			task.EarlierMintsInTx = mintsInTx[key]
			mintsInTx[key]++
		}
		switch candidate.Kind {
		case protocol.CandidateDeploy:
			phases[0] = append(phases[0], task)
		case protocol.CandidateMint, protocol.CandidateBitmap:
			phases[1] = append(phases[1], task)
		case protocol.CandidateParcel:
			phases[2] = append(phases[2], task)
		}
	}

	snapshot := newBlockSnapshot(p.inscriptionDg)
	outcomes := make([]validator.Outcome, 0, len(phases[0])+len(phases[1])+len(phases[2]))
	for i, tasks := range phases {
		if len(tasks) == 0 {
			continue
		}
		results, err := p.runPhase(ctx, snapshot, tasks)
		if err != nil {
			return nil, errors.Wrapf(err, "validation phase %d failed", i+1)
		}
		snapshot.add(results)
		outcomes = append(outcomes, results...)
	}
	return outcomes, nil
}

type indexedOutcome struct {
	index   int
	outcome validator.Outcome
}

// runPhase validates tasks on a bounded worker pool. The first transient outcome cancels the
// remaining tasks and fails the attempt.
func (p *Processor) runPhase(ctx context.Context, snapshot validator.Snapshot, tasks []validator.Task) ([]validator.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan indexedOutcome)
	stream := cstream.NewStream(ctx, p.concurrency, out)
	go func() {
		defer stream.Close()
		for i, task := range tasks {
			i, task := i, task
			stream.Go(func() indexedOutcome {
				if err := ctx.Err(); err != nil {
					return indexedOutcome{index: i, outcome: validator.Outcome{Kind: validator.TransientError, Err: err}}
				}
				return indexedOutcome{index: i, outcome: p.validator.Validate(ctx, snapshot, task)}
			})
		}
	}()
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	outcomes := make([]validator.Outcome, len(tasks))
	received := 0
	var firstErr error
	for result := range out {
		received++
		if result.outcome.Kind == validator.TransientError {
			if firstErr == nil {
				firstErr = errors.Wrapf(result.outcome.Err, "transient failure validating %s", tasks[result.index].Inscription.Id)
				cancel()
			}
			continue
		}
		outcomes[result.index] = result.outcome
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if received != len(tasks) {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		return nil, errors.Errorf("received %d of %d validation outcomes", received, len(tasks))
	}

	logger.DebugContext(ctx, "Validated phase",
		slogx.Int("tasks", len(tasks)),
	)
	return outcomes, nil
}
