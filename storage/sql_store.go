package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"vinpipe/models"
	"vinpipe/utils"
)

const snapshotTable = "vehicle_snapshots"

// dialect holds what differs between the supported databases.
type dialect struct {
	driver      string
	placeholder func(n int) string
	quote       func(ident string) string
	schema      []string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:      "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		quote:       func(s string) string { return `"` + s + `"` },
		schema: []string{
			createSnapshots(`"`, "TIMESTAMPTZ NOT NULL DEFAULT NOW()", ""),
			`CREATE INDEX IF NOT EXISTS idx_vehicle_snapshots_vin ON vehicle_snapshots(vin)`,
			`CREATE INDEX IF NOT EXISTS idx_vehicle_snapshots_run ON vehicle_snapshots(run_id)`,
		},
	},
	"mysql": {
		driver:      "mysql",
		placeholder: func(int) string { return "?" },
		quote:       func(s string) string { return "`" + s + "`" },
		schema: []string{
			createSnapshots("`", "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
				",\n\tINDEX idx_vehicle_snapshots_vin (`vin`),\n\tINDEX idx_vehicle_snapshots_run (`run_id`)"),
		},
	},
	"sqlite": {
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
		quote:       func(s string) string { return `"` + s + `"` },
		schema: []string{
			createSnapshots(`"`, "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP", ""),
			`CREATE INDEX IF NOT EXISTS idx_vehicle_snapshots_vin ON vehicle_snapshots(vin)`,
			`CREATE INDEX IF NOT EXISTS idx_vehicle_snapshots_run ON vehicle_snapshots(run_id)`,
		},
	},
}

func createSnapshots(q, createdAt, extra string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + snapshotTable + " (\n")
	b.WriteString("\t" + q + "run_id" + q + " VARCHAR(36) NOT NULL,\n")
	b.WriteString("\t" + q + "position" + q + " INTEGER NOT NULL,\n")
	for _, c := range models.CanonicalColumns {
		b.WriteString("\t" + q + c + q + " VARCHAR(255) NOT NULL DEFAULT '',\n")
	}
	b.WriteString("\t" + q + "created_at" + q + " " + createdAt)
	b.WriteString(extra)
	b.WriteString("\n)")
	return b.String()
}

// SnapshotStore persists the latest unioned table to a SQL database. Every
// Write replaces the previous snapshot; rows are tagged with a run id.
type SnapshotStore struct {
	db      *sql.DB
	dialect dialect
	logger  *utils.Logger
	lastRun string
}

// NewSnapshotStore opens driver ("postgres", "mysql" or "sqlite") at dsn,
// waits for it to answer and migrates the schema.
func NewSnapshotStore(ctx context.Context, driver, dsn string, logger *utils.Logger) (*SnapshotStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("snapshot: unsupported driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do(ctx, "snapshot ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	s := &SnapshotStore{db: db, dialect: d, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: migrate: %w", err)
	}
	logger.Info("[snapshot] Connected to %s store", driver)
	return s, nil
}

func (s *SnapshotStore) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RunID returns the id of the last successful Write.
func (s *SnapshotStore) RunID() string {
	return s.lastRun
}

// Write replaces the stored snapshot with t in one transaction.
func (s *SnapshotStore) Write(t *models.Table) error {
	ctx := context.Background()
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+snapshotTable); err != nil {
		return fmt.Errorf("snapshot: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < t.Len(); i += batchSize {
		end := i + batchSize
		if end > t.Len() {
			end = t.Len()
		}
		if err := s.insertBatch(ctx, tx, runID, i, t.Rows[i:end]); err != nil {
			return fmt.Errorf("snapshot: insert rows %d-%d: %w", i, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}
	s.lastRun = runID
	s.logger.Info("[snapshot] Stored %d rows under run %s", t.Len(), runID)
	return nil
}

func (s *SnapshotStore) insertBatch(ctx context.Context, tx *sql.Tx, runID string, offset int, batch []models.Row) error {
	cols := append([]string{"run_id", "position"}, models.CanonicalColumns...)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.dialect.quote(c)
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*len(cols))
	n := 0
	for idx, r := range batch {
		ph := make([]string, len(cols))
		for i := range ph {
			n++
			ph[i] = s.dialect.placeholder(n)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")

		valueArgs = append(valueArgs, runID, offset+idx)
		for _, c := range models.CanonicalColumns {
			valueArgs = append(valueArgs, r[c])
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		snapshotTable, strings.Join(quoted, ","), strings.Join(valueStrings, ","))
	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

// FetchAll returns the stored snapshot in its original row order, with every
// canonical column.
func (s *SnapshotStore) FetchAll() (*models.Table, error) {
	quoted := make([]string, len(models.CanonicalColumns))
	for i, c := range models.CanonicalColumns {
		quoted[i] = s.dialect.quote(c)
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ","), snapshotTable, s.dialect.quote("position")))
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetch all: %w", err)
	}
	defer rows.Close()

	t := models.NewTable(models.CanonicalColumns...)
	for rows.Next() {
		vals := make([]string, len(models.CanonicalColumns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("snapshot: scan row: %w", err)
		}
		row := make(models.Row, len(vals))
		for i, c := range models.CanonicalColumns {
			row[c] = vals[i]
		}
		t.Append(row)
	}
	return t, rows.Err()
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
