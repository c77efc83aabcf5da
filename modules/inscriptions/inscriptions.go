package inscriptions

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common/errs"
	"github.com/gaze-network/inscription-indexer/core/datasources"
	"github.com/gaze-network/inscription-indexer/core/indexer"
	"github.com/gaze-network/inscription-indexer/internal/config"
	"github.com/gaze-network/inscription-indexer/internal/postgres"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/api/httphandler"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/protocol"
	inscriptionspostgres "github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/repository/postgres"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/usecase"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/internal/validator"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

func New(injector do.Injector) (indexer.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	moduleConf := conf.Modules.Inscriptions

	cleanupFuncs := make([]func(context.Context) error, 0)
	pg, err := postgres.NewPool(ctx, moduleConf.Postgres)
	if err != nil {
		if errors.Is(err, errs.InvalidArgument) {
			return nil, errors.Wrap(err, "Invalid Postgres configuration for indexer")
		}
		return nil, errors.Wrap(err, "can't create Postgres connection pool")
	}
	cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
		pg.Close()
		return nil
	})
	repo := inscriptionspostgres.NewRepository(pg)

	endpointChanges := newEndpointChanges()
	resolver, err := endpoint.New(moduleConf.Endpoint, endpoint.HTTPProber{}, map[endpoint.Kind][]endpoint.Candidate{
		endpoint.KindInscription: endpoint.DefaultCandidates(endpoint.KindInscription, moduleConf.InscriptionService.URL),
		endpoint.KindTransaction: endpoint.DefaultCandidates(endpoint.KindTransaction, moduleConf.TransactionService.URL),
	}, endpoint.WithChangeFunc(func(kind endpoint.Kind, _, _ endpoint.Candidate) {
		endpointChanges.WithLabelValues(kind.String()).Inc()
	}))
	if err != nil {
		return nil, errors.Wrap(err, "can't create endpoint resolver")
	}

	ordClient := datasources.NewOrdClient(resolver, datasources.OrdConfig{
		Concurrency:    moduleConf.Concurrency,
		RequestTimeout: moduleConf.InscriptionService.RequestTimeout,
		FetchContent:   protocol.IsInspectable,
		Debug:          conf.Logger.Debug,
	})
	mempoolClient := datasources.NewMempoolClient(resolver, datasources.MempoolConfig{
		RequestTimeout: moduleConf.TransactionService.RequestTimeout,
		Debug:          conf.Logger.Debug,
	})

	processor, err := NewProcessor(
		repo,
		repo,
		ordClient,
		validator.New(mempoolClient, ordClient, conf.Network.ChainParams()),
		conf.Network,
		moduleConf,
		cleanupFuncs,
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := registerCollectors(prometheus.DefaultRegisterer, append(processor.stats.collectors(), endpointChanges)...); err != nil {
		return nil, errors.WithStack(err)
	}

	// Mount API
	httpServer := do.MustInvoke[*fiber.App](injector)
	httpHandler := httphandler.New(conf.Network, usecase.New(repo))
	if err := httpHandler.Mount(httpServer); err != nil {
		return nil, errors.Wrap(err, "can't mount API")
	}
	logger.InfoContext(ctx, "Mounted HTTP handler", slogx.String("module", processor.Name()))

	return newWorker(
		indexer.New(processor, ordClient, indexer.Config{
			PollingInterval: moduleConf.PollingInterval,
			Confirmations:   moduleConf.Confirmations,
			RetryAttempts:   moduleConf.RetryAttempts,
			RetryDelay:      moduleConf.RetryDelay,
		}),
		indexer.NewSupervisor(processor, indexer.SupervisorConfig{
			Interval:  moduleConf.SupervisorInterval,
			BatchSize: moduleConf.SupervisorBatchSize,
		}),
	), nil
}
