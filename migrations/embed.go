// Package migrations embeds the SQL schema migrations applied by goose.
package migrations

import "embed"

// CoreDir is the directory inside FS holding the core schema migrations.
const CoreDir = "core"

//go:embed core/*.sql
var FS embed.FS
