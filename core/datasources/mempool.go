package datasources

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

const (
	DefaultTransactionCacheExpiration = 30 * time.Minute
	transactionCacheCleanupInterval   = 10 * time.Minute
)

var _ TransactionService = (*MempoolClient)(nil)

type MempoolConfig struct {
	RequestTimeout time.Duration

	// CacheExpiration of confirmed transactions.
	CacheExpiration time.Duration

	Debug bool
}

// MempoolClient reads transactions from an esplora compatible API (mempool.space).
// Confirmed transactions are cached in memory.
type MempoolClient struct {
	*serviceClient
	cache *cache.Cache
}

func NewMempoolClient(resolver EndpointResolver, config MempoolConfig) *MempoolClient {
	expiration := config.CacheExpiration
	if expiration <= 0 {
		expiration = DefaultTransactionCacheExpiration
	}
	return &MempoolClient{
		serviceClient: newServiceClient(endpoint.KindTransaction, resolver, config.RequestTimeout, config.Debug),
		cache:         cache.New(expiration, transactionCacheCleanupInterval),
	}
}

func (c *MempoolClient) Name() string {
	return "mempool"
}

type esploraPrevout struct {
	Address *string `json:"scriptpubkey_address"`
	Value   int64   `json:"value"`
}

type esploraTransaction struct {
	TxId string `json:"txid"`
	Vin  []struct {
		TxId    string          `json:"txid"`
		Vout    uint32          `json:"vout"`
		Prevout *esploraPrevout `json:"prevout"`
	} `json:"vin"`
	Vout   []esploraPrevout `json:"vout"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight int64 `json:"block_height"`
	} `json:"status"`
}

func (c *MempoolClient) GetTransaction(ctx context.Context, txHash chainhash.Hash) (types.Transaction, error) {
	key := txHash.String()
	if tx, ok := c.cache.Get(key); ok {
		return tx.(types.Transaction), nil
	}

	resp, err := c.get(ctx, "/tx/"+key, nil)
	if err != nil {
		return types.Transaction{}, errors.Wrapf(err, "failed to get transaction %s", key)
	}
	var result esploraTransaction
	if err := resp.UnmarshalBody(&result); err != nil {
		return types.Transaction{}, errors.Wrap(errs.TransientService, err.Error())
	}

	tx := types.Transaction{
		TxHash:      txHash,
		BlockHeight: result.Status.BlockHeight,
		Confirmed:   result.Status.Confirmed,
		TxIn:        make([]types.TxIn, 0, len(result.Vin)),
		TxOut:       make([]types.TxOut, 0, len(result.Vout)),
	}
	for _, in := range result.Vin {
		txIn := types.TxIn{PreviousOutIndex: in.Vout}
		if prevHash, err := chainhash.NewHashFromStr(in.TxId); err == nil {
			txIn.PreviousOutTxHash = *prevHash
		}
		if in.Prevout != nil {
			txIn.Address = lo.FromPtr(in.Prevout.Address)
			txIn.Value = in.Prevout.Value
		}
		tx.TxIn = append(tx.TxIn, txIn)
	}
	for _, out := range result.Vout {
		tx.TxOut = append(tx.TxOut, types.TxOut{
			Address: lo.FromPtr(out.Address),
			Value:   out.Value,
		})
	}

	if tx.Confirmed {
		c.cache.SetDefault(key, tx)
	}
	return tx, nil
}

// GetAddressForInscriptionGenesis returns the address of the first output of the reveal transaction,
// which receives the inscribed sat.
func (c *MempoolClient) GetAddressForInscriptionGenesis(ctx context.Context, id types.InscriptionId) (string, error) {
	tx, err := c.GetTransaction(ctx, id.TxHash)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if len(tx.TxOut) == 0 || tx.TxOut[0].Address == "" {
		return "", errors.Wrapf(errs.NotFound, "reveal transaction of %s has no addressable first output", id)
	}
	return tx.TxOut[0].Address, nil
}
