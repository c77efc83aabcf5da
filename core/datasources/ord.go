package datasources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/types"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/samber/lo"
)

const (
	DefaultOrdConcurrency = 8

	// maxInscriptionPages guards against a service that never reports the last page.
	maxInscriptionPages = 100_000
)

var (
	_ InscriptionService = (*OrdClient)(nil)
	_ OwnershipService   = (*OrdClient)(nil)
)

type OrdConfig struct {
	// Concurrency of inscription detail and content requests while listing a block.
	Concurrency int

	// RequestTimeout of a single request.
	RequestTimeout time.Duration

	// FetchContent reports whether the content of an inscription with the given mime type
	// is fetched while listing. Nil fetches every content.
	FetchContent func(mimeType string) bool

	Debug bool
}

// OrdClient reads inscriptions from an ord server JSON API.
type OrdClient struct {
	*serviceClient
	config OrdConfig
}

func NewOrdClient(resolver EndpointResolver, config OrdConfig) *OrdClient {
	config.Concurrency = utils.Default(config.Concurrency, DefaultOrdConcurrency)
	return &OrdClient{
		serviceClient: newServiceClient(endpoint.KindInscription, resolver, config.RequestTimeout, config.Debug),
		config:        config,
	}
}

func (c *OrdClient) Name() string {
	return "ord"
}

func (c *OrdClient) GetBlockHeight(ctx context.Context) (int64, error) {
	resp, err := c.get(ctx, "/blockheight", nil)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	height, err := strconv.ParseInt(strings.TrimSpace(string(resp.Body())), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errs.TransientService, "invalid block height %q from %s", resp.Body(), resp.URL)
	}
	return height, nil
}

type ordInscriptionsPage struct {
	Ids       []types.InscriptionId `json:"ids"`
	More      bool                  `json:"more"`
	PageIndex int                   `json:"page_index"`
}

type ordInscription struct {
	Id          types.InscriptionId `json:"id"`
	Number      int64               `json:"number"`
	Address     *string             `json:"address"`
	ContentType *string             `json:"content_type"`
	Height      int64               `json:"height"`
	Timestamp   int64               `json:"timestamp"`
}

// ListInscriptionIds returns the ids of the inscriptions revealed at height in reveal order.
func (c *OrdClient) ListInscriptionIds(ctx context.Context, height int64) ([]types.InscriptionId, error) {
	ids := make([]types.InscriptionId, 0)
	for page := 0; page < maxInscriptionPages; page++ {
		resp, err := c.get(ctx, fmt.Sprintf("/inscriptions/block/%d/%d", height, page), nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list inscriptions, height: %d, page: %d", height, page)
		}
		var result ordInscriptionsPage
		if err := resp.UnmarshalBody(&result); err != nil {
			return nil, errors.Wrap(errs.TransientService, err.Error())
		}
		ids = append(ids, result.Ids...)
		if !result.More || len(result.Ids) == 0 {
			return ids, nil
		}
	}
	return nil, errors.Wrapf(errs.InternalError, "too many inscription pages at height %d", height)
}

// GetInscription returns the metadata of an inscription without its content.
func (c *OrdClient) GetInscription(ctx context.Context, id types.InscriptionId) (types.Inscription, error) {
	resp, err := c.get(ctx, "/inscription/"+id.String(), nil)
	if err != nil {
		return types.Inscription{}, errors.Wrapf(err, "failed to get inscription %s", id)
	}
	var result ordInscription
	if err := resp.UnmarshalBody(&result); err != nil {
		return types.Inscription{}, errors.Wrap(errs.TransientService, err.Error())
	}
	return types.Inscription{
		Id:          id,
		Number:      result.Number,
		MimeType:    lo.FromPtr(result.ContentType),
		Address:     lo.FromPtr(result.Address),
		BlockHeight: result.Height,
		Timestamp:   time.Unix(result.Timestamp, 0).UTC(),
	}, nil
}

func (c *OrdClient) GetInscriptionContent(ctx context.Context, id types.InscriptionId) ([]byte, error) {
	resp, err := c.get(ctx, "/content/"+id.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get content of inscription %s", id)
	}
	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, errors.Wrap(errs.TransientService, err.Error())
	}
	return append([]byte(nil), body...), nil
}

// CurrentOwner returns the address holding the inscription according to the ord server.
// [errs.NotFound] is returned when the inscription is unknown or its holder has no address.
func (c *OrdClient) CurrentOwner(ctx context.Context, id types.InscriptionId) (string, error) {
	inscription, err := c.GetInscription(ctx, id)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if inscription.Address == "" {
		return "", errors.Wrapf(errs.NotFound, "inscription %s has no owner address", id)
	}
	return inscription.Address, nil
}

type ordFetchResult struct {
	index       int
	inscription types.Inscription
	err         error
}

// ListInscriptions returns the inscriptions revealed at height with their reveal index set.
// Content is fetched for the mime types accepted by [OrdConfig.FetchContent].
func (c *OrdClient) ListInscriptions(ctx context.Context, height int64) ([]types.Inscription, error) {
	ids, err := c.ListInscriptionIds(ctx, height)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(ids) == 0 {
		return []types.Inscription{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan ordFetchResult)
	stream := cstream.NewStream(ctx, c.config.Concurrency, out)
	go func() {
		defer stream.Close()
		for i, id := range ids {
			i, id := i, id
			stream.Go(func() ordFetchResult {
				inscription, err := c.fetchInscription(ctx, id)
				if err != nil {
					return ordFetchResult{index: i, err: err}
				}
				inscription.BlockHeight = height
				inscription.RevealIndex = int64(i)
				return ordFetchResult{index: i, inscription: inscription}
			})
		}
	}()
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	inscriptions := make([]types.Inscription, len(ids))
	fetched := make([]bool, len(ids))
	var firstErr error
	for result := range out {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		inscriptions[result.index] = result.inscription
		fetched[result.index] = true
	}
	if firstErr != nil {
		return nil, errors.Wrapf(firstErr, "failed to fetch inscriptions at height %d", height)
	}
	for i, ok := range fetched {
		if !ok {
			if err := ctx.Err(); err != nil {
				return nil, errors.WithStack(err)
			}
			return nil, errors.Wrapf(errs.InternalError, "inscription %s at height %d was not fetched", ids[i], height)
		}
	}

	logger.DebugContext(ctx, "Listed inscriptions",
		slogx.String("package", "datasources"),
		slogx.Int64("height", height),
		slogx.Int("total", len(inscriptions)),
	)
	return inscriptions, nil
}

func (c *OrdClient) fetchInscription(ctx context.Context, id types.InscriptionId) (types.Inscription, error) {
	inscription, err := c.GetInscription(ctx, id)
	if err != nil {
		return types.Inscription{}, errors.WithStack(err)
	}
	if c.config.FetchContent == nil || c.config.FetchContent(inscription.MimeType) {
		content, err := c.GetInscriptionContent(ctx, id)
		if err != nil {
			return types.Inscription{}, errors.WithStack(err)
		}
		inscription.Content = content
	}
	return inscription, nil
}
