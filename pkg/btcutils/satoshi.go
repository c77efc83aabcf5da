package btcutils

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/shopspring/decimal"
)

const (
	BitcoinDecimals = 8
)

// satsUnit is 10^8
var satsUnit = decimal.New(1, BitcoinDecimals)

// maxSatoshi is the total supply cap, 21e14 sats.
var maxSatoshi = decimal.New(21, 14)

// ParseBitcoinAmount parses a decimal amount in BTC (e.g. "0.00001") into satoshis.
// The amount must be non-negative and must not carry more than 8 decimal places.
func ParseBitcoinAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(errs.InvalidArgument, "empty amount")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrapf(errs.InvalidArgument, "invalid amount %q", s)
	}
	if amount.IsNegative() {
		return 0, errors.Wrapf(errs.InvalidArgument, "negative amount %q", s)
	}
	sats := amount.Mul(satsUnit)
	if !sats.Equal(sats.Truncate(0)) {
		return 0, errors.Wrapf(errs.InvalidArgument, "amount %q has more than %d decimals", s, BitcoinDecimals)
	}
	if sats.GreaterThan(maxSatoshi) {
		return 0, errors.Wrapf(errs.InvalidArgument, "amount %q exceeds total supply", s)
	}
	return sats.IntPart(), nil
}

// SatoshiToBitcoin converts a amount in Satoshi format to Bitcoin format.
func SatoshiToBitcoin(v int64) decimal.Decimal {
	return decimal.New(v, -BitcoinDecimals)
}
