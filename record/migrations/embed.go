package migrations

import "embed"

// FS contains embedded SQLite migrations for opportunity storage.
//
//go:embed *.sql
var FS embed.FS
