package datasources

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
)

// InscriptionService lists the inscriptions revealed in a block and serves their content.
type InscriptionService interface {
	Name() string
	GetBlockHeight(ctx context.Context) (int64, error)

	// ListInscriptions returns the inscriptions revealed at height in reveal order.
	ListInscriptions(ctx context.Context, height int64) ([]types.Inscription, error)
	GetInscriptionContent(ctx context.Context, id types.InscriptionId) ([]byte, error)
}

// OwnershipService reports the address currently holding an inscription.
type OwnershipService interface {
	CurrentOwner(ctx context.Context, id types.InscriptionId) (string, error)
}

// TransactionService serves confirmed transactions and the genesis address of inscriptions.
type TransactionService interface {
	Name() string
	GetTransaction(ctx context.Context, txHash chainhash.Hash) (types.Transaction, error)

	// GetAddressForInscriptionGenesis returns the address that received the inscription in its reveal transaction.
	GetAddressForInscriptionGenesis(ctx context.Context, id types.InscriptionId) (string, error)
}

// EndpointResolver provides the base URL of a service kind and collects call results for failover.
type EndpointResolver interface {
	Resolve(ctx context.Context, kind endpoint.Kind) (string, error)
	ReportSuccess(kind endpoint.Kind, url string)
	ReportFailure(ctx context.Context, kind endpoint.Kind, url string)
}

var _ EndpointResolver = (*endpoint.Resolver)(nil)
