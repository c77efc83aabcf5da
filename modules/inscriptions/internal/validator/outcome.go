package validator

import (
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/entity"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/protocol"
)

// RejectReason is the terminal reason of a rejected inscription.
type RejectReason string

const (
	ReasonDuplicateSource     RejectReason = "duplicate_source"
	ReasonDeployNotFound      RejectReason = "deploy_not_found"
	ReasonDeployMismatch      RejectReason = "deploy_mismatch"
	ReasonRoyaltyMismatch     RejectReason = "royalty_mismatch"
	ReasonRoyaltyReused       RejectReason = "royalty_reused"
	ReasonCapacityExceeded    RejectReason = "capacity_exceeded"
	ReasonInvalidBitmap       RejectReason = "invalid_bitmap"
	ReasonFutureBitmap        RejectReason = "future_bitmap"
	ReasonDuplicateBitmap     RejectReason = "duplicate_bitmap"
	ReasonInvalidParcel       RejectReason = "invalid_parcel"
	ReasonBitmapNotFound      RejectReason = "bitmap_not_found"
	ReasonNotBitmapOwner      RejectReason = "not_bitmap_owner"
	ReasonDuplicateParcel     RejectReason = "duplicate_parcel"
	ReasonUnresolvableAddress RejectReason = "unresolvable_address"
)

type OutcomeKind int8

const (
	Accepted OutcomeKind = iota + 1
	Rejected
	TransientError
)

func (k OutcomeKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Revisable reports whether the rejection was judged against records of earlier heights.
// A failed earlier height can still add or displace those records when it is re-driven.
func (r RejectReason) Revisable() bool {
	switch r {
	case ReasonDeployNotFound, ReasonDeployMismatch, ReasonRoyaltyMismatch, ReasonCapacityExceeded,
		ReasonBitmapNotFound, ReasonNotBitmapOwner, ReasonDuplicateParcel:
		return true
	default:
		return false
	}
}

// Task is the unit of work of a validation worker.
type Task struct {
	Inscription types.Inscription
	Candidate   protocol.Candidate
	Sequence    types.Sequence

	// EarlierMintsInTx counts the mints of the same source id revealed earlier in the same transaction.
	EarlierMintsInTx int
}

// Outcome is the result of validating a [Task]. An accepted outcome carries exactly one
// proposed record matching the candidate kind; proposals are adjudicated again on commit.
type Outcome struct {
	Kind          OutcomeKind
	CandidateKind protocol.CandidateKind
	InscriptionId types.InscriptionId
	Sequence      types.Sequence

	Deploy *entity.Deploy
	Mint   *entity.Mint
	Bitmap *entity.Bitmap
	Parcel *entity.Parcel

	// Reason of a rejected outcome.
	Reason RejectReason

	// Err of a transient outcome.
	Err error
}

func accept(task Task) Outcome {
	return Outcome{
		Kind:          Accepted,
		CandidateKind: task.Candidate.Kind,
		InscriptionId: task.Inscription.Id,
		Sequence:      task.Sequence,
	}
}

func reject(task Task, reason RejectReason) Outcome {
	return Outcome{
		Kind:          Rejected,
		CandidateKind: task.Candidate.Kind,
		InscriptionId: task.Inscription.Id,
		Sequence:      task.Sequence,
		Reason:        reason,
	}
}

func transient(task Task, err error) Outcome {
	return Outcome{
		Kind:          TransientError,
		CandidateKind: task.Candidate.Kind,
		InscriptionId: task.Inscription.Id,
		Sequence:      task.Sequence,
		Err:           err,
	}
}

// Reject turns an accepted outcome into a rejection, used when commit-time adjudication fails.
func (o Outcome) Reject(reason RejectReason) Outcome {
	return Outcome{
		Kind:          Rejected,
		CandidateKind: o.CandidateKind,
		InscriptionId: o.InscriptionId,
		Sequence:      o.Sequence,
		Reason:        reason,
	}
}
