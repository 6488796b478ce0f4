package relica

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
)

// SchemaMigrator lazily bootstraps the subscriber table.
//
// EnsureSchema is memoized per process: after one successful run every later
// call is a single atomic load. A failed run is NOT cached, so the caller's
// next invocation retries from the top — each statement (CREATE IF NOT
// EXISTS, introspect-then-ADD-COLUMN, WHERE-guarded backfill UPDATE) is
// individually idempotent, which also makes concurrent first runs across
// process instances safe without any lock.
type SchemaMigrator struct {
	db          *sql.DB
	driverName  string
	tablePrefix string
	ready       atomic.Bool
}

// NewSchemaMigrator creates a migrator for the given database handle.
// driverName must be "mysql", "postgres", or "sqlite3".
func NewSchemaMigrator(db *sql.DB, driverName string) *SchemaMigrator {
	return &SchemaMigrator{db: db, driverName: driverName}
}

// NewSchemaMigratorWithPrefix creates a migrator with a custom table prefix.
func NewSchemaMigratorWithPrefix(db *sql.DB, driverName, prefix string) *SchemaMigrator {
	return &SchemaMigrator{db: db, driverName: driverName, tablePrefix: prefix}
}

func (m *SchemaMigrator) tableName() string {
	return m.tablePrefix + "subscribers"
}

// EnsureSchema creates the subscriber table if missing, adds any columns a
// legacy deployment lacks, and backfills derived fields. Safe to call before
// every operation; the work runs at most once per process lifetime.
func (m *SchemaMigrator) EnsureSchema(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}
	if err := m.migrate(ctx); err != nil {
		return err
	}
	m.ready.Store(true)
	return nil
}

// subscriberColumns lists every column newer than the original two-column
// (id, email) table, in the order they are added. Types are resolved per
// driver by columnType.
var subscriberColumns = []string{
	"status",
	"confirmed",
	"confirm_token_hash",
	"confirm_token_expires_at",
	"confirmed_at",
	"subscribed_at",
	"unsubscribed_at",
	"suppressed_at",
	"suppression_reason",
	"created_at",
	"updated_at",
}

func (m *SchemaMigrator) migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, m.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create subscribers table: %w", err)
	}

	existing, err := m.listColumns(ctx)
	if err != nil {
		return fmt.Errorf("failed to introspect subscribers table: %w", err)
	}

	for _, column := range subscriberColumns {
		if existing[column] {
			continue
		}
		// SQLite rejects non-constant defaults in ADD COLUMN, so the
		// timestamp defaults are dropped here; the backfill below fills the
		// NULLs and inserts always set these fields explicitly.
		colType := strings.TrimSuffix(m.columnType(column), " DEFAULT CURRENT_TIMESTAMP")
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			m.tableName(), column, colType)
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", column, err)
		}
	}

	return m.backfill(ctx)
}

func (m *SchemaMigrator) createTableSQL() string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	switch m.driverName {
	case "mysql":
		idColumn = "id BIGINT PRIMARY KEY AUTO_INCREMENT"
	case "postgres":
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	columns := []string{
		idColumn,
		"email " + m.columnType("email"),
	}
	for _, column := range subscriberColumns {
		columns = append(columns, column+" "+m.columnType(column))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		m.tableName(), strings.Join(columns, ", "))
}

// columnType resolves the DDL type for a column under the active driver.
func (m *SchemaMigrator) columnType(column string) string {
	text, timestamp, boolean := "TEXT", "DATETIME", "BOOLEAN DEFAULT FALSE"
	switch m.driverName {
	case "mysql":
		boolean = "TINYINT(1) DEFAULT 0"
	case "postgres":
		timestamp = "TIMESTAMPTZ"
	}

	switch column {
	case "email":
		if m.driverName == "mysql" {
			return "VARCHAR(255) NOT NULL UNIQUE"
		}
		return text + " NOT NULL UNIQUE"
	case "status":
		if m.driverName == "mysql" {
			return "VARCHAR(32) DEFAULT 'pending'"
		}
		return text + " DEFAULT 'pending'"
	case "confirmed":
		return boolean
	case "subscribed_at", "created_at", "updated_at":
		return timestamp + " DEFAULT CURRENT_TIMESTAMP"
	case "confirm_token_expires_at", "confirmed_at", "unsubscribed_at", "suppressed_at":
		return timestamp
	default: // confirm_token_hash, suppression_reason
		return text
	}
}

func (m *SchemaMigrator) listColumns(ctx context.Context) (map[string]bool, error) {
	var rows *sql.Rows
	var err error

	switch m.driverName {
	case "sqlite3":
		rows, err = m.db.QueryContext(ctx,
			fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", m.tableName()))
	case "mysql":
		rows, err = m.db.QueryContext(ctx,
			"SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
			m.tableName())
	case "postgres":
		rows, err = m.db.QueryContext(ctx,
			"SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1",
			m.tableName())
	default:
		return nil, fmt.Errorf("unsupported driver: %s", m.driverName)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// backfill repairs legacy rows once: bookkeeping timestamps, a confirmation
// timestamp for rows that carried only the old boolean flag, and the status
// derivation by precedence (suppressed > unsubscribed > confirmed >
// legacy-no-token-active > pending). Every UPDATE is guarded so rows already
// repaired are untouched on replay.
func (m *SchemaMigrator) backfill(ctx context.Context) error {
	table := m.tableName()
	statements := []string{
		fmt.Sprintf(`UPDATE %s
			SET created_at = COALESCE(created_at, subscribed_at, CURRENT_TIMESTAMP)
			WHERE created_at IS NULL`, table),
		fmt.Sprintf(`UPDATE %s
			SET updated_at = COALESCE(updated_at, subscribed_at, created_at, CURRENT_TIMESTAMP)
			WHERE updated_at IS NULL`, table),
		fmt.Sprintf(`UPDATE %s
			SET confirmed_at = COALESCE(confirmed_at, subscribed_at, created_at, CURRENT_TIMESTAMP)
			WHERE confirmed = TRUE AND confirmed_at IS NULL`, table),
		fmt.Sprintf(`UPDATE %s
			SET status = CASE
				WHEN suppressed_at IS NOT NULL THEN 'suppressed'
				WHEN unsubscribed_at IS NOT NULL THEN 'unsubscribed'
				WHEN confirmed_at IS NOT NULL OR confirmed = TRUE THEN 'active'
				WHEN confirm_token_hash IS NULL AND unsubscribed_at IS NULL THEN 'active'
				ELSE 'pending'
			END
			WHERE status IS NULL OR status = '' OR status NOT IN ('pending', 'active', 'unsubscribed', 'suppressed')`, table),
	}

	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to backfill subscribers table: %w", err)
		}
	}
	return nil
}
