// Package migrations embeds the PostgreSQL schema migrations so the server
// and the migrate command do not depend on the working directory.
package migrations

import "embed"

// FS holds the *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
