// Package migrations embeds the SQL migration files for the materialized index.
package migrations

import "embed"

// FS holds the goose migration files.
//
//go:embed *.sql
var FS embed.FS
