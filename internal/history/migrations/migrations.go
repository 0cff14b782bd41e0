// Package migrations embeds the history schema for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
