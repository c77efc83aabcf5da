// Package validator checks classified inscriptions against the protocol rules. Validation is
// read-only: workers propose records, the persistence layer adjudicates them on commit.
package validator

import (
	"context"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/datasources"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/protocol"
	"github.com/gaze-network/inscription-indexer/pkg/btcutils"
)

// Snapshot is a read-only view of accepted records. Lookups only consider records whose
// sequence is lower than before, and return [errs.NotFound] otherwise.
type Snapshot interface {
	GetDeployBySourceId(ctx context.Context, sourceId types.InscriptionId, before types.Sequence) (*entity.Deploy, error)
	GetBitmapByNumber(ctx context.Context, number int64, before types.Sequence) (*entity.Bitmap, error)
}

type Validator struct {
	transactions datasources.TransactionService
	ownership    datasources.OwnershipService
	net          *chaincfg.Params
}

func New(transactions datasources.TransactionService, ownership datasources.OwnershipService, net *chaincfg.Params) *Validator {
	return &Validator{
		transactions: transactions,
		ownership:    ownership,
		net:          net,
	}
}

// Validate runs the rules of the candidate kind. Collaborator failures yield a [TransientError]
// outcome, never a rejection.
func (v *Validator) Validate(ctx context.Context, snapshot Snapshot, task Task) Outcome {
	switch task.Candidate.Kind {
	case protocol.CandidateDeploy:
		return v.validateDeploy(ctx, snapshot, task)
	case protocol.CandidateMint:
		return v.validateMint(ctx, snapshot, task)
	case protocol.CandidateBitmap:
		return v.validateBitmap(ctx, snapshot, task)
	case protocol.CandidateParcel:
		return v.validateParcel(ctx, snapshot, task)
	default:
		return transient(task, errors.Wrapf(errs.InternalError, "unexpected candidate kind %s", task.Candidate.Kind))
	}
}

func (v *Validator) validateDeploy(ctx context.Context, snapshot Snapshot, task Task) Outcome {
	payload := task.Candidate.Deploy

	_, err := snapshot.GetDeployBySourceId(ctx, payload.SourceId, task.Sequence)
	switch {
	case err == nil:
		return reject(task, ReasonDuplicateSource)
	case !errors.Is(err, errs.NotFound):
		return transient(task, errors.Wrap(err, "failed to get deploy by source id"))
	}

	deployer, outcome, ok := v.genesisAddress(ctx, task)
	if !ok {
		return outcome
	}

	outcome = accept(task)
	outcome.Deploy = &entity.Deploy{
		Id:              task.Inscription.Id,
		SourceId:        payload.SourceId,
		Name:            payload.Name,
		Max:             payload.Max,
		Price:           payload.Price,
		DeployerAddress: deployer,
		BlockHeight:     task.Inscription.BlockHeight,
		Sequence:        task.Sequence,
		Timestamp:       task.Inscription.Timestamp,
	}
	return outcome
}

func (v *Validator) validateMint(ctx context.Context, snapshot Snapshot, task Task) Outcome {
	sourceId := task.Candidate.Mint.SourceId

	deploy, err := snapshot.GetDeployBySourceId(ctx, sourceId, task.Sequence)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return reject(task, ReasonDeployNotFound)
		}
		return transient(task, errors.Wrap(err, "failed to get deploy by source id"))
	}

	minter, outcome, ok := v.genesisAddress(ctx, task)
	if !ok {
		return outcome
	}

	if deploy.Price > 0 {
		// one payment pays for one mint of the transaction
		if task.EarlierMintsInTx > 0 {
			return reject(task, ReasonRoyaltyReused)
		}
		tx, err := v.transactions.GetTransaction(ctx, task.Inscription.Id.TxHash)
		if err != nil {
			return transient(task, errors.Wrap(err, "failed to get mint transaction"))
		}
		if v.paidTo(tx, deploy.DeployerAddress) != deploy.Price {
			return reject(task, ReasonRoyaltyMismatch)
		}
	}

	outcome = accept(task)
	outcome.Mint = &entity.Mint{
		Id:            task.Inscription.Id,
		DeployId:      deploy.Id,
		SourceId:      sourceId,
		MintAddress:   minter,
		TransactionId: task.Inscription.Id.TxHash,
		BlockHeight:   task.Inscription.BlockHeight,
		Sequence:      task.Sequence,
		Timestamp:     task.Inscription.Timestamp,
	}
	return outcome
}

func (v *Validator) validateBitmap(ctx context.Context, snapshot Snapshot, task Task) Outcome {
	number, err := parseNumber(task.Candidate.BitmapNumber)
	if err != nil {
		return reject(task, ReasonInvalidBitmap)
	}
	if task.Inscription.BlockHeight < number {
		return reject(task, ReasonFutureBitmap)
	}

	_, err = snapshot.GetBitmapByNumber(ctx, number, task.Sequence)
	switch {
	case err == nil:
		return reject(task, ReasonDuplicateBitmap)
	case !errors.Is(err, errs.NotFound):
		return transient(task, errors.Wrap(err, "failed to get bitmap by number"))
	}

	address, outcome, ok := v.genesisAddress(ctx, task)
	if !ok {
		return outcome
	}

	outcome = accept(task)
	outcome.Bitmap = &entity.Bitmap{
		InscriptionId: task.Inscription.Id,
		BitmapNumber:  number,
		Address:       address,
		BlockHeight:   task.Inscription.BlockHeight,
		Sequence:      task.Sequence,
		Timestamp:     task.Inscription.Timestamp,
	}
	return outcome
}

func (v *Validator) validateParcel(ctx context.Context, snapshot Snapshot, task Task) Outcome {
	number, err := parseNumber(task.Candidate.BitmapNumber)
	if err != nil {
		return reject(task, ReasonInvalidParcel)
	}
	index, err := parseNumber(task.Candidate.ParcelIndex)
	if err != nil {
		return reject(task, ReasonInvalidParcel)
	}

	bitmap, err := snapshot.GetBitmapByNumber(ctx, number, task.Sequence)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return reject(task, ReasonBitmapNotFound)
		}
		return transient(task, errors.Wrap(err, "failed to get bitmap by number"))
	}

	owner, err := v.ownership.CurrentOwner(ctx, bitmap.InscriptionId)
	switch {
	case errors.Is(err, errs.NotFound):
		owner = bitmap.Address
	case err != nil:
		return transient(task, errors.Wrap(err, "failed to get bitmap owner"))
	}

	inscriber, outcome, ok := v.genesisAddress(ctx, task)
	if !ok {
		return outcome
	}
	if v.normalize(owner) != inscriber {
		return reject(task, ReasonNotBitmapOwner)
	}

	outcome = accept(task)
	outcome.Parcel = &entity.Parcel{
		InscriptionId:       task.Inscription.Id,
		BitmapNumber:        number,
		BitmapInscriptionId: bitmap.InscriptionId,
		ParcelIndex:         index,
		Address:             inscriber,
		BlockHeight:         task.Inscription.BlockHeight,
		Sequence:            task.Sequence,
		Timestamp:           task.Inscription.Timestamp,
	}
	return outcome
}

// genesisAddress resolves the normalized address that received the inscription. When ok is false
// the returned outcome must be used as the result of the task.
func (v *Validator) genesisAddress(ctx context.Context, task Task) (string, Outcome, bool) {
	address, err := v.transactions.GetAddressForInscriptionGenesis(ctx, task.Inscription.Id)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return "", reject(task, ReasonUnresolvableAddress), false
		}
		return "", transient(task, errors.Wrap(err, "failed to get genesis address")), false
	}
	return v.normalize(address), Outcome{}, true
}

// paidTo returns the total value of the outputs of tx paying address, comparing normalized addresses.
func (v *Validator) paidTo(tx types.Transaction, address string) int64 {
	address = v.normalize(address)
	var total int64
	for _, out := range tx.TxOut {
		if out.Address != "" && v.normalize(out.Address) == address {
			total += out.Value
		}
	}
	return total
}

// normalize returns the canonical encoding of address, or address itself when it can't be decoded.
func (v *Validator) normalize(address string) string {
	if v.net == nil {
		return address
	}
	normalized, err := btcutils.NormalizeAddress(address, v.net)
	if err != nil {
		return address
	}
	return normalized
}

func parseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errs.InvalidArgument, "invalid number %q", s)
	}
	if n < 0 {
		return 0, errors.Wrapf(errs.InvalidArgument, "negative number %q", s)
	}
	return n, nil
}
