package inscriptions

import (
	"github.com/gaze-network/inscription-indexer/common"
)

const (
	ClientVersion = "v0.1.0"
	DBVersion     = 1
)

// genesisBlockHeight is the first height carrying protocol inscriptions.
var genesisBlockHeight = map[common.Network]int64{
	common.NetworkMainnet: 767430,
	common.NetworkTestnet: 2413343,
}
