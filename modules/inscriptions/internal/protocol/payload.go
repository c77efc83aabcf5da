package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/pkg/btcutils"
)

// Protocol is the value of the `p` marker of structured payloads.
const Protocol = "brc-420"

type Operation string

const (
	OperationDeploy Operation = "deploy"
	OperationMint   Operation = "mint"
)

func (o Operation) IsValid() bool {
	switch o {
	case OperationDeploy, OperationMint:
		return true
	}
	return false
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.WithStack(err)
	}
	*f = flexString(n.String())
	return nil
}

type rawPayload struct {
	P  string `json:"p"`  // required
	Op string `json:"op"` // required

	// Id is the source inscription of the collection. Optional for deploy, required for mint.
	Id *string `json:"id"`

	// for deploy operations
	Name  string      `json:"name"` // required
	Max   *flexString `json:"max"`
	Price *flexString `json:"price"` // in BTC
}

// DeployPayload is a parsed deploy operation.
type DeployPayload struct {
	// SourceId is the collection source inscription. Zero when the deploy doesn't name one,
	// in which case the deploy inscription itself is the source.
	SourceId types.InscriptionId
	Name     string

	// Max is the mint supply cap, 0 means unlimited.
	Max int64

	// Price is the royalty per mint in sats, 0 means free mint.
	Price int64
}

// MintPayload is a parsed mint operation.
type MintPayload struct {
	SourceId types.InscriptionId
}

var (
	ErrNotJSON          = errors.New("payload is not a json object")
	ErrInvalidProtocol  = errors.New("invalid protocol: must be 'brc-420'")
	ErrInvalidOperation = errors.New("invalid operation: must be one of 'deploy' or 'mint'")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidMax       = errors.New("invalid max: must be a non-negative integer")
	ErrInvalidPrice     = errors.New("invalid price: must be a non-negative BTC amount with at most 8 decimals")
	ErrInvalidSourceId  = errors.New("invalid source inscription id")
	ErrMissingSourceId  = errors.New("missing source inscription id")
	ErrNameTooLong      = errors.New("name too long")
)

const maxNameLength = 256

// ParsePayload parses a structured payload. It returns [ErrNotJSON] or [ErrInvalidProtocol]
// for content that is not a payload of this protocol.
func ParsePayload(content []byte) (Operation, *DeployPayload, *MintPayload, error) {
	content = bytes.TrimSpace(content)
	if len(content) == 0 || content[0] != '{' {
		return "", nil, nil, errors.WithStack(ErrNotJSON)
	}
	var p rawPayload
	if err := json.Unmarshal(content, &p); err != nil {
		return "", nil, nil, errors.Wrap(ErrNotJSON, err.Error())
	}
	if strings.ToLower(strings.TrimSpace(p.P)) != Protocol {
		return "", nil, nil, errors.WithStack(ErrInvalidProtocol)
	}

	op := Operation(strings.ToLower(strings.TrimSpace(p.Op)))
	switch op {
	case OperationDeploy:
		deploy, err := parseDeploy(p)
		if err != nil {
			return op, nil, nil, errors.WithStack(err)
		}
		return op, deploy, nil, nil
	case OperationMint:
		if p.Id == nil {
			return op, nil, nil, errors.WithStack(ErrMissingSourceId)
		}
		sourceId, err := types.NewInscriptionIdFromString(strings.TrimSpace(*p.Id))
		if err != nil {
			return op, nil, nil, errors.Wrap(ErrInvalidSourceId, err.Error())
		}
		return op, nil, &MintPayload{SourceId: sourceId}, nil
	default:
		return op, nil, nil, errors.WithStack(ErrInvalidOperation)
	}
}

func parseDeploy(p rawPayload) (*DeployPayload, error) {
	deploy := &DeployPayload{
		Name: strings.TrimSpace(p.Name),
	}
	if deploy.Name == "" {
		return nil, errors.WithStack(ErrEmptyName)
	}
	if len(deploy.Name) > maxNameLength {
		return nil, errors.WithStack(ErrNameTooLong)
	}
	if p.Id != nil && strings.TrimSpace(*p.Id) != "" {
		sourceId, err := types.NewInscriptionIdFromString(strings.TrimSpace(*p.Id))
		if err != nil {
			return nil, errors.Wrap(ErrInvalidSourceId, err.Error())
		}
		deploy.SourceId = sourceId
	}
	if p.Max != nil && strings.TrimSpace(string(*p.Max)) != "" {
		max, err := strconv.ParseInt(strings.TrimSpace(string(*p.Max)), 10, 64)
		if err != nil || max < 0 {
			return nil, errors.WithStack(ErrInvalidMax)
		}
		deploy.Max = max
	}
	if p.Price != nil && strings.TrimSpace(string(*p.Price)) != "" {
		price, err := btcutils.ParseBitcoinAmount(string(*p.Price))
		if err != nil {
			return nil, errors.Wrap(ErrInvalidPrice, err.Error())
		}
		deploy.Price = price
	}
	return deploy, nil
}
