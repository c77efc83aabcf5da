package types

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type Transaction struct {
	TxHash      chainhash.Hash
	BlockHeight int64
	Confirmed   bool
	TxIn        []TxIn
	TxOut       []TxOut
}

type TxIn struct {
	PreviousOutTxHash chainhash.Hash
	PreviousOutIndex  uint32

	// Address spent from, empty for coinbase or non-standard scripts.
	Address string
	Value   int64
}

type TxOut struct {
	// Address paid to, empty for non-standard scripts (e.g. OP_RETURN).
	Address string
	Value   int64
}
