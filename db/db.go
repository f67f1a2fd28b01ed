package db

import "embed"

// Migrations holds the SQL migration files, consumed by golang-migrate's
// iofs source at server startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
