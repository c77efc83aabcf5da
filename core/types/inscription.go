package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
)

// InscriptionId is `<reveal txid>i<index>`.
type InscriptionId struct {
	TxHash chainhash.Hash
	Index  uint32
}

func NewInscriptionId(txHash chainhash.Hash, index uint32) InscriptionId {
	return InscriptionId{
		TxHash: txHash,
		Index:  index,
	}
}

func (i InscriptionId) String() string {
	return fmt.Sprintf("%si%d", i.TxHash.String(), i.Index)
}

func (i InscriptionId) IsZero() bool {
	return i == InscriptionId{}
}

func NewInscriptionIdFromString(s string) (InscriptionId, error) {
	txid, index, ok := strings.Cut(s, "i")
	if !ok {
		return InscriptionId{}, errors.Wrap(errs.InvalidArgument, "invalid inscription id: missing separator")
	}
	if len(txid) != chainhash.MaxHashStringSize {
		return InscriptionId{}, errors.Wrapf(errs.InvalidArgument, "invalid inscription id: txid must be %d hex characters", chainhash.MaxHashStringSize)
	}
	txHash, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return InscriptionId{}, errors.Wrap(errs.InvalidArgument, "invalid inscription id: cannot parse txid")
	}
	n, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return InscriptionId{}, errors.Wrap(errs.InvalidArgument, "invalid inscription id: cannot parse index")
	}
	return InscriptionId{
		TxHash: *txHash,
		Index:  uint32(n),
	}, nil
}

// MarshalJSON implements json.Marshaler
func (i InscriptionId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (i *InscriptionId) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.Wrap(errs.InvalidArgument, "inscription id must be a string")
	}
	parsed, err := NewInscriptionIdFromString(string(data[1 : len(data)-1]))
	if err != nil {
		return errors.WithStack(err)
	}
	*i = parsed
	return nil
}

// Inscription is an inscription revealed in a block, as reported by the inscription service.
type Inscription struct {
	Id       InscriptionId
	Number   int64
	MimeType string

	// Content is only populated for inspectable mime types.
	Content []byte

	// Address currently holding the inscription, empty when unknown.
	Address string

	BlockHeight int64

	// RevealIndex is the position of the inscription in the reveal order of its block.
	RevealIndex int64
	Timestamp   time.Time
}
