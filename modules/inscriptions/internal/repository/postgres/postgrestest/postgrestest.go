//go:build integration

// Package postgrestest runs a disposable PostgreSQL container with the inscriptions schema for
// integration tests.
package postgrestest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/internal/postgres"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/database/postgresql/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	dbName          = "inscriptions_test"
	dbUsername      = "indexer"
	dbPassword      = "indexer"
	migrationsTable = "inscriptions_schema_migrations"
)

// Tables lists the tables written by the inscriptions module.
var Tables = []string{
	"deferred_blocks",
	"error_blocks",
	"block_progress",
	"parcels",
	"bitmaps",
	"mints",
	"deploys",
	"indexer_states",
}

type Database struct {
	Pool *pgxpool.Pool
	URL  string

	docker   *dockertest.Pool
	resource *dockertest.Resource
}

// Start runs a PostgreSQL container, applies the embedded migrations and connects a pool to it.
func Start(ctx context.Context) (*Database, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create docker pool")
	}
	pool.MaxWait = 2 * time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15.4",
		Env: []string{
			fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
			fmt.Sprintf("POSTGRES_USER=%s", dbUsername),
			fmt.Sprintf("POSTGRES_DB=%s", dbName),
			"listen_addresses = '*'",
		},
		ExposedPorts: []string{"5432"},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
		config.Tmpfs = map[string]string{
			"/var/lib/postgresql/data": "",
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to run postgres container")
	}
	db := &Database{
		URL:      fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUsername, dbPassword, resource.GetPort("5432/tcp"), dbName),
		docker:   pool,
		resource: resource,
	}

	if err := pool.Retry(func() error {
		connPool, err := postgres.NewPool(ctx, postgres.Config{URL: db.URL})
		if err != nil {
			return err
		}
		db.Pool = connPool
		return nil
	}); err != nil {
		return nil, errors.Join(errors.Wrap(err, "failed to connect to postgres"), db.Close())
	}
	if err := db.migrateUp(); err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return db, nil
}

func (db *Database) migrateUp() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.Wrap(err, "failed to open embedded migrations")
	}
	target, err := url.Parse(db.URL)
	if err != nil {
		return errors.Wrap(err, "failed to parse database URL")
	}
	query := target.Query()
	query.Set("x-migrations-table", migrationsTable)
	target.RawQuery = query.Encode()

	m, err := migrate.NewWithSourceInstance("iofs", source, target.String())
	if err != nil {
		return errors.Wrap(err, "failed to create Migrate instance")
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "failed to migrate up")
	}
	return nil
}

// Truncate empties every table of the module.
func (db *Database) Truncate(ctx context.Context) error {
	for _, table := range Tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)); err != nil {
			return errors.Wrapf(err, "failed to truncate %s", table)
		}
	}
	return nil
}

// Close disconnects the pool and removes the container.
func (db *Database) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	return errors.Wrap(db.docker.Purge(db.resource), "failed to purge postgres container")
}
