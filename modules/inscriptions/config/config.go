package config

import (
	"time"

	"github.com/gaze-network/inscription-indexer/internal/postgres"
	"github.com/gaze-network/inscription-indexer/pkg/endpoint"
)

type Config struct {
	Postgres postgres.Config `mapstructure:"postgres"`

	InscriptionService ServiceConfig   `mapstructure:"inscription_service"` // ord server
	TransactionService ServiceConfig   `mapstructure:"transaction_service"` // esplora compatible API
	Endpoint           endpoint.Config `mapstructure:"endpoint"`

	// Concurrency of validation workers within a block.
	Concurrency int `mapstructure:"concurrency"`

	RetryAttempts       int           `mapstructure:"retry_attempts"` // total attempts of a height before it's handed to the supervisor
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	SupervisorInterval  time.Duration `mapstructure:"supervisor_interval"`
	SupervisorBatchSize int           `mapstructure:"supervisor_batch_size"`
	PollingInterval     time.Duration `mapstructure:"polling_interval"`
	Confirmations       int64         `mapstructure:"confirmations"`

	// StartHeight overrides the genesis height when it is higher.
	StartHeight int64 `mapstructure:"start_height"`
}

type ServiceConfig struct {
	// URL overrides endpoint discovery when set.
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}
