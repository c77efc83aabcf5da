package migrate

import (
	"fmt"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/modules/inscriptions/database/postgresql/migrations"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	moduleName      = "Inscriptions"
	migrationsTable = "inscriptions_schema_migrations"
)

var supportedDrivers = map[string]struct{}{
	"postgres":   {},
	"postgresql": {},
}

func cloneURLWithQuery(u *url.URL, newQuery url.Values) *url.URL {
	clone := *u
	query := clone.Query()
	for key, values := range newQuery {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	clone.RawQuery = query.Encode()
	return &clone
}

func parseDatabaseURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, errors.New("--database is required")
	}
	databaseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database URL")
	}
	if _, ok := supportedDrivers[databaseURL.Scheme]; !ok {
		return nil, errors.Errorf("unsupported database driver: %s", databaseURL.Scheme)
	}
	return databaseURL, nil
}

// newMigrate opens the embedded schema against the database. Versions are tracked in a table
// of their own so the schema can share a database with other services.
func newMigrate(databaseURL *url.URL, verbose bool) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded migrations")
	}
	targetURL := cloneURLWithQuery(databaseURL, url.Values{"x-migrations-table": {migrationsTable}})
	m, err := migrate.NewWithSourceInstance("iofs", source, targetURL.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Migrate instance")
	}
	m.Log = &consoleLogger{
		prefix:  fmt.Sprintf("[%s] ", moduleName),
		verbose: verbose,
	}
	return m, nil
}

// closeMigrate releases the source and the database connection of m.
func closeMigrate(m *migrate.Migrate) error {
	sourceErr, databaseErr := m.Close()
	return errors.WithStack(errors.Join(sourceErr, databaseErr))
}
