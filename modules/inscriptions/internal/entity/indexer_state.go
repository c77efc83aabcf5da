package entity

import (
	"time"

	"github.com/gaze-network/inscription-indexer/common"
)

type IndexerState struct {
	CreatedAt     time.Time
	ClientVersion string
	DBVersion     int32
	Network       common.Network
}
