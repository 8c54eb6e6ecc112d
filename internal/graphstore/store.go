// Package graphstore keeps a catalogue of compiled pipeline graphs in a
// SQLite database so they can be listed and reloaded without recompiling.
package graphstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/pointpipe/internal/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no pipeline has the requested UID.
var ErrNotFound = errors.New("pipeline not found")

// Entry is the catalogue row for one saved pipeline.
type Entry struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Stages    int       `json:"stages"`
	Leaves    int       `json:"leaves"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a pipeline catalogue backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the catalogue at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// MigrateUp runs all pending migrations. It is a no-op when the schema is
// current.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the schema version and dirty flag. A fresh
// database reports version 0.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

// migrateLogger routes golang-migrate output to the diag stream.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { diagf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// Save stores desc under name and returns the new pipeline UID.
func (s *Store) Save(ctx context.Context, name string, desc pipeline.GraphDescription) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("pipeline name is empty")
	}
	body, err := json.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("failed to encode description: %w", err)
	}

	uid := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pipelines (pipeline_uid, name, description, stage_count, leaf_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uid, name, string(body), len(desc.Stages), len(desc.Leaves), s.now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("failed to insert pipeline: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pipeline_stages (pipeline_uid, stage_id, stage_uid, role, stage_type, tag, input_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for _, st := range desc.Stages {
		if _, err := stmt.ExecContext(ctx, uid, st.ID, st.UID, st.Role, st.Type, st.Tag, joinIDs(st.Inputs)); err != nil {
			return "", fmt.Errorf("failed to insert stage %d: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	diagf("saved pipeline %s (%s) with %d stages", uid, name, len(desc.Stages))
	return uid, nil
}

// Load returns the saved description and catalogue entry for uid.
func (s *Store) Load(ctx context.Context, uid string) (pipeline.GraphDescription, Entry, error) {
	var (
		desc    pipeline.GraphDescription
		e       Entry
		body    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT pipeline_uid, name, description, stage_count, leaf_count, created_at
		 FROM pipelines WHERE pipeline_uid = ?`, uid,
	).Scan(&e.UID, &e.Name, &body, &e.Stages, &e.Leaves, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return desc, e, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return desc, e, err
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(body), &desc); err != nil {
		return desc, e, fmt.Errorf("failed to decode description of %s: %w", uid, err)
	}
	return desc, e, nil
}

// List returns every saved pipeline, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pipeline_uid, name, stage_count, leaf_count, created_at
		 FROM pipelines ORDER BY created_at DESC, pipeline_uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.UID, &e.Name, &e.Stages, &e.Leaves, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindByStageType returns the UIDs of pipelines using typ, oldest first.
func (s *Store) FindByStageType(ctx context.Context, typ string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT p.pipeline_uid, p.created_at
		 FROM pipelines p JOIN pipeline_stages st ON st.pipeline_uid = p.pipeline_uid
		 WHERE st.stage_type = ?
		 ORDER BY p.created_at, p.pipeline_uid`, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		var created int64
		if err := rows.Scan(&uid, &created); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

// Delete removes a saved pipeline and its stages.
func (s *Store) Delete(ctx context.Context, uid string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE pipeline_uid = ?`, uid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	return nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
