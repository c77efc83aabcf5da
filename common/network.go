package common

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
)

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// chainParams holds every supported network.
var chainParams = map[Network]*chaincfg.Params{
	NetworkMainnet: &chaincfg.MainNetParams,
	NetworkTestnet: &chaincfg.TestNet3Params,
}

func (n Network) IsSupported() bool {
	_, ok := chainParams[n]
	return ok
}

// ChainParams returns nil for an unsupported network.
func (n Network) ChainParams() *chaincfg.Params {
	return chainParams[n]
}

func (n Network) String() string {
	return string(n)
}

// UnmarshalText accepts any letter case, e.g. "Mainnet".
func (n *Network) UnmarshalText(text []byte) error {
	network := Network(strings.ToLower(strings.TrimSpace(string(text))))
	if !network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported", string(text))
	}
	*n = network
	return nil
}
