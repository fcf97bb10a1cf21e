// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema is the idempotent DDL for the shop database.
//
//go:embed migrations/001_schema.sql
var Schema string
