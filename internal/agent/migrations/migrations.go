// Package migrations embeds the agent's local SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
