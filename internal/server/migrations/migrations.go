// Package migrations embeds the gateway's PostgreSQL schema migrations for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
