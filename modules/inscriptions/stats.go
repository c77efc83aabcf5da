package inscriptions

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type processorStats struct {
	blocks         *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	blockDuration  prometheus.Histogram
	errorBlocks    prometheus.Gauge
	deferredBlocks prometheus.Gauge
	latestHeight   prometheus.Gauge
}

func newProcessorStats() *processorStats {
	return &processorStats{
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inscriptions_blocks_total",
			Help: "Block attempts by result",
		}, []string{"result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inscriptions_outcomes_total",
			Help: "Committed inscription outcomes by candidate kind, result and reject reason",
		}, []string{"kind", "result", "reason"}),
		blockDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inscriptions_block_duration_seconds",
			Help:    "Duration of successful block attempts",
			Buckets: prometheus.DefBuckets,
		}),
		errorBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inscriptions_error_blocks",
			Help: "Heights waiting for a supervisor re-drive",
		}),
		deferredBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inscriptions_deferred_blocks",
			Help: "Heights waiting for an earlier failed height to recover",
		}),
		latestHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inscriptions_latest_block_height",
			Help: "Highest completed block height",
		}),
	}
}

func (s *processorStats) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.blocks,
		s.outcomes,
		s.blockDuration,
		s.errorBlocks,
		s.deferredBlocks,
		s.latestHeight,
	}
}

func newEndpointChanges() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inscriptions_endpoint_changes_total",
		Help: "Endpoint changes by service kind",
	}, []string{"kind"})
}

func registerCollectors(registerer prometheus.Registerer, collectors ...prometheus.Collector) error {
	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return errors.Wrap(err, "failed to register stats collector")
		}
	}
	return nil
}
