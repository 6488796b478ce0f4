package newsletter

import "embed"

// MigrationFiles contains all SQL migration files embedded in the binary.
// They describe the full subscriber schema for deployments that manage the
// database with a migration tool (goose, golang-migrate, atlas, etc.)
// instead of the lazy SchemaMigrator.
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    newsletter "github.com/coregx/newsletter"
//	)
//
//	goose.SetBaseFS(newsletter.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS
