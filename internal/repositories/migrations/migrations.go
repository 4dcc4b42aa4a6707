// Package migrations embeds the local note store schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
