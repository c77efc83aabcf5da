package migrate

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{name: "postgres", rawURL: "postgres://u:p@localhost:5432/db?sslmode=disable"},
		{name: "postgresql", rawURL: "postgresql://localhost/db"},
		{name: "empty", rawURL: "", wantErr: true},
		{name: "unsupported driver", rawURL: "mysql://localhost/db", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := parseDatabaseURL(tt.rawURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rawURL, actual.String())
		})
	}
}

func TestCloneURLWithQuery(t *testing.T) {
	original, err := url.Parse("postgres://localhost/db?sslmode=disable")
	require.NoError(t, err)

	clone := cloneURLWithQuery(original, url.Values{"x-migrations-table": {migrationsTable}})

	assert.Equal(t, "disable", clone.Query().Get("sslmode"))
	assert.Equal(t, migrationsTable, clone.Query().Get("x-migrations-table"))
	assert.Empty(t, original.Query().Get("x-migrations-table"))
}

func TestParseArgs(t *testing.T) {
	var up migrateUpCmdArgs
	require.NoError(t, up.ParseArgs([]string{"2"}))
	assert.Equal(t, 2, up.N)

	var down migrateDownCmdArgs
	assert.Error(t, down.ParseArgs([]string{"-1"}))
	assert.Error(t, down.ParseArgs([]string{"x"}))
	require.NoError(t, down.ParseArgs(nil))
	assert.Zero(t, down.N)
}
