// Package migrations embeds the SQL migrations of the MediaHub database.
package migrations

import "embed"

// FS contains the migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
