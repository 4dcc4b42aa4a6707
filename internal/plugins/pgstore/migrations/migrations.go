// Package migrations embeds the schema of the remote notes table.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
