package postgres

import "embed"

// Migrations holds the goose SQL migrations for the recharge schema
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations
const MigrationsDir = "migrations"
