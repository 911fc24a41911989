// Package db embeds the SQL schema migrations.
package db

import "embed"

// Migrations holds migrations/NNNN_name.up.sql and matching down files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
