// Package migrations embeds the SQL schema so the server can bootstrap an
// empty database and store tests can reference the table layout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
