package btcutils

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
)

// NormalizeAddress decodes address for net and re-encodes it, so equal addresses compare equal
// as strings (bech32 addresses are case-insensitive).
func NormalizeAddress(address string, net *chaincfg.Params) (string, error) {
	if address == "" {
		return "", errors.Wrap(errs.InvalidArgument, "empty address")
	}
	decoded, err := btcutil.DecodeAddress(address, net)
	if err != nil {
		return "", errors.Wrapf(errs.InvalidArgument, "invalid address %q: %v", address, err)
	}
	if !decoded.IsForNet(net) {
		return "", errors.Wrapf(errs.InvalidArgument, "address %q is not for %s", address, net.Name)
	}
	return decoded.EncodeAddress(), nil
}
