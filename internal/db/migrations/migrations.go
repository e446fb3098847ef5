// Package migrations embeds the goose SQL migrations applied by both the
// login and realm services against the shared Postgres store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
