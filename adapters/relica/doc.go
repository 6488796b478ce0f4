// Package relica provides SQL-backed implementations of the newsletter
// persistence interfaces using the Relica query builder.
//
// Supported databases: MySQL, PostgreSQL, and SQLite. The adapter wraps a
// standard *sql.DB, so connection pooling, timeouts, and driver registration
// stay under the caller's control.
//
// Two pieces live here:
//
//   - SubscriberRepository: row access keyed on normalized email or
//     confirmation token hash, plus per-status stats.
//   - SchemaMigrator: lazy, idempotent schema bootstrap that creates the
//     subscriber table, adds any columns missing from legacy deployments,
//     and backfills derived fields once per process lifetime.
//
// Example:
//
//	db, _ := sql.Open("sqlite3", "newsletter.db")
//	repo := relica.NewSubscriberRepository(db, "sqlite3")
//	migrator := relica.NewSchemaMigrator(db, "sqlite3")
//
//	manager, _ := newsletter.NewLifecycleManager(
//	    newsletter.WithRepository(repo),
//	    newsletter.WithSchemaEnsurer(migrator),
//	    newsletter.WithMailer(mailer),
//	    newsletter.WithLifecycleLogger(logger),
//	)
package relica
