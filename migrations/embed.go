// Package migrations embeds the versioned SQL schema so the server and
// integration tests can apply it without a migrations directory on disk.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
