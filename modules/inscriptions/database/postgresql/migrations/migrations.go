// Package migrations embeds the PostgreSQL schema of the inscriptions module.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
