package entity

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/inscription-indexer/core/types"
)

// Deploy is an accepted collection deploy. Immutable once persisted.
type Deploy struct {
	Id       types.InscriptionId
	SourceId types.InscriptionId
	Name     string

	// Max is the mint supply cap, 0 means unlimited.
	Max int64

	// Price in sats paid to DeployerAddress by each mint.
	Price           int64
	DeployerAddress string
	BlockHeight     int64
	Sequence        types.Sequence
	Timestamp       time.Time
}

// IsUnlimited reports whether the deploy has no supply cap.
func (d Deploy) IsUnlimited() bool {
	return d.Max <= 0
}

// Mint is an accepted mint of a deploy. Immutable once persisted.
type Mint struct {
	Id            types.InscriptionId
	DeployId      types.InscriptionId
	SourceId      types.InscriptionId
	MintAddress   string
	TransactionId chainhash.Hash
	BlockHeight   int64
	Sequence      types.Sequence
	Timestamp     time.Time
}

// Bitmap is the accepted claim of a bitmap number.
type Bitmap struct {
	InscriptionId types.InscriptionId
	BitmapNumber  int64
	Address       string
	BlockHeight   int64
	Sequence      types.Sequence
	Timestamp     time.Time
}

// Parcel is an accepted subdivision of a bitmap.
type Parcel struct {
	InscriptionId       types.InscriptionId
	BitmapNumber        int64
	BitmapInscriptionId types.InscriptionId
	ParcelIndex         int64
	Address             string
	BlockHeight         int64
	Sequence            types.Sequence
	Timestamp           time.Time
}
