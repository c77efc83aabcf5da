package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
)

// sequenceIndexBits is the width of the in-block reveal index in a [Sequence].
const sequenceIndexBits = 24

// MaxRevealIndex is the largest reveal index a [Sequence] can carry.
const MaxRevealIndex = 1<<sequenceIndexBits - 1

// Sequence is the global order of an inscription: block height first, then reveal order
// within the block. It is independent of processing and commit order.
type Sequence int64

func NewSequence(blockHeight int64, revealIndex int64) (Sequence, error) {
	if blockHeight < 0 {
		return 0, errors.Wrapf(errs.InvalidArgument, "block height must be non-negative, got %d", blockHeight)
	}
	if revealIndex < 0 || revealIndex > MaxRevealIndex {
		return 0, errors.Wrapf(errs.InvalidArgument, "reveal index %d out of range [0, %d]", revealIndex, MaxRevealIndex)
	}
	return Sequence(blockHeight<<sequenceIndexBits | revealIndex), nil
}

func (s Sequence) BlockHeight() int64 {
	return int64(s) >> sequenceIndexBits
}

func (s Sequence) RevealIndex() int64 {
	return int64(s) & MaxRevealIndex
}

func (s Sequence) String() string {
	return fmt.Sprintf("%d:%d", s.BlockHeight(), s.RevealIndex())
}
