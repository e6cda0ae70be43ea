// Package engine is the imperative shell around the persistent store.
// Entities are typed records from internal/core/domain serialized as JSON
// rows, one table per entity kind, mutated under optimistic concurrency:
// every read carries a version, every write is a compare-and-swap on it.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/shipyard/internal/core/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("version conflict")
)

// Entity tables.
const (
	tablePlans      = "plans"
	tableMigrations = "migrations"
	tableRollouts   = "rollouts"
)

// conflictRetries bounds read-modify-write retries on ErrConflict.
const conflictRetries = 3

// Store persists orchestration entities in SQLite.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an already-migrated database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying sqlx.DB.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// =============================================================================
// Versioned JSON Records
// =============================================================================

// get loads a versioned record into v and returns its version.
func (s *Store) get(ctx context.Context, table, id string, v any) (int64, error) {
	var row struct {
		Data    string `db:"data"`
		Version int64  `db:"version"`
	}
	query := fmt.Sprintf("SELECT data, version FROM %s WHERE id = ?", table)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
		}
		return 0, fmt.Errorf("get %s: %w", table, err)
	}
	if err := json.Unmarshal([]byte(row.Data), v); err != nil {
		return 0, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return row.Version, nil
}

// insert creates a versioned record at version 1.
func (s *Store) insert(ctx context.Context, table, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", table, id, err)
	}
	now := nowRFC3339()
	query := fmt.Sprintf(
		"INSERT INTO %s (id, data, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)", table)
	if _, err := s.db.ExecContext(ctx, query, id, string(data), now, now); err != nil {
		return fmt.Errorf("insert %s %s: %w", table, id, err)
	}
	return nil
}

// update replaces a versioned record if and only if the stored version
// still matches. Zero rows affected means a concurrent writer won.
func (s *Store) update(ctx context.Context, table, id string, version int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", table, id, err)
	}
	query := fmt.Sprintf(
		"UPDATE %s SET data = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?", table)
	result, err := s.db.ExecContext(ctx, query, string(data), nowRFC3339(), id, version)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		// Either the row vanished or the version moved under us.
		var exists int
		check := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE id = ?", table)
		if err := s.db.GetContext(ctx, &exists, check, id); err == nil && exists == 0 {
			return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrNotFound)
		}
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id, ErrConflict)
	}
	return nil
}

// retryConflict runs fn, retrying a bounded number of times when it
// reports ErrConflict. fn must re-read the record on every attempt.
func retryConflict(fn func() error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}

// =============================================================================
// Plans / Migrations / Rollouts
// =============================================================================

func (s *Store) GetPlan(ctx context.Context, id string) (*domain.Plan, int64, error) {
	var p domain.Plan
	version, err := s.get(ctx, tablePlans, id, &p)
	if err != nil {
		return nil, 0, err
	}
	return &p, version, nil
}

func (s *Store) InsertPlan(ctx context.Context, p *domain.Plan) error {
	return s.insert(ctx, tablePlans, p.ID, p)
}

func (s *Store) UpdatePlan(ctx context.Context, p *domain.Plan, version int64) error {
	return s.update(ctx, tablePlans, p.ID, version, p)
}

func (s *Store) GetMigration(ctx context.Context, id string) (*domain.Migration, int64, error) {
	var m domain.Migration
	version, err := s.get(ctx, tableMigrations, id, &m)
	if err != nil {
		return nil, 0, err
	}
	return &m, version, nil
}

func (s *Store) InsertMigration(ctx context.Context, m *domain.Migration) error {
	return s.insert(ctx, tableMigrations, m.ID, m)
}

func (s *Store) UpdateMigration(ctx context.Context, m *domain.Migration, version int64) error {
	return s.update(ctx, tableMigrations, m.ID, version, m)
}

func (s *Store) GetRollout(ctx context.Context, id string) (*domain.Rollout, int64, error) {
	var r domain.Rollout
	version, err := s.get(ctx, tableRollouts, id, &r)
	if err != nil {
		return nil, 0, err
	}
	return &r, version, nil
}

func (s *Store) InsertRollout(ctx context.Context, r *domain.Rollout) error {
	return s.insert(ctx, tableRollouts, r.ID, r)
}

func (s *Store) UpdateRollout(ctx context.Context, r *domain.Rollout, version int64) error {
	return s.update(ctx, tableRollouts, r.ID, version, r)
}

// ListRolloutsByStatus returns rollouts with the given status, oldest first.
func (s *Store) ListRolloutsByStatus(ctx context.Context, status domain.RolloutStatus) ([]domain.Rollout, error) {
	var rows []string
	query := "SELECT data FROM rollouts ORDER BY created_at ASC"
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list rollouts: %w", err)
	}
	var out []domain.Rollout
	for _, raw := range rows {
		var r domain.Rollout
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode rollout: %w", err)
		}
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

// =============================================================================
// Artifacts
// =============================================================================

// Artifacts are immutable: insert-once, no update path. Concept, build
// time, and size are denormalized into columns for GC queries.

func (s *Store) GetArtifact(ctx context.Context, hash string) (*domain.Artifact, error) {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT data FROM artifacts WHERE hash = ?", hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s: %w", hash, ErrNotFound)
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	var a domain.Artifact
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", hash, err)
	}
	return &a, nil
}

func (s *Store) InsertArtifact(ctx context.Context, a *domain.Artifact) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", a.Hash, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO artifacts (hash, concept, data, size_bytes, built_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.Hash, a.Concept, string(data), a.SizeBytes, a.BuiltAt.UTC().Format(time.RFC3339Nano), nowRFC3339())
	if err != nil {
		return fmt.Errorf("insert artifact %s: %w", a.Hash, err)
	}
	return nil
}

func (s *Store) ListArtifacts(ctx context.Context) ([]domain.Artifact, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, "SELECT data FROM artifacts ORDER BY built_at DESC"); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	out := make([]domain.Artifact, 0, len(rows))
	for _, raw := range rows {
		var a domain.Artifact
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteArtifacts removes the given hashes in a single transaction.
func (s *Store) DeleteArtifacts(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin gc transaction: %w", err)
	}
	defer tx.Rollback()

	for _, h := range hashes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM artifacts WHERE hash = ?", h); err != nil {
			return fmt.Errorf("delete artifact %s: %w", h, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// Health Checks (append-only)
// =============================================================================

func (s *Store) AppendCheck(ctx context.Context, c *domain.HealthCheck) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode check %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO checks (id, target, kind, data, created_at) VALUES (?, ?, ?, ?, ?)",
		c.ID, c.Target, string(c.Kind), string(data), nowRFC3339())
	if err != nil {
		return fmt.Errorf("append check %s: %w", c.ID, err)
	}
	return nil
}

// LatestChecks returns the most recent check per target. Targets with no
// recorded check are absent from the map.
func (s *Store) LatestChecks(ctx context.Context, targets []string) (map[string]domain.HealthCheck, error) {
	latest := make(map[string]domain.HealthCheck, len(targets))
	for _, target := range targets {
		var data string
		err := s.db.GetContext(ctx, &data,
			"SELECT data FROM checks WHERE target = ? ORDER BY seq DESC LIMIT 1", target)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("latest check for %s: %w", target, err)
		}
		var c domain.HealthCheck
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("decode check for %s: %w", target, err)
		}
		latest[target] = c
	}
	return latest, nil
}

// =============================================================================
// Probe Round Trips
// =============================================================================

// ProbeRoundTrip writes, reads back, and deletes a probe row, exercising
// the full store path. The health aggregator measures its latency.
func (s *Store) ProbeRoundTrip(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO probes (id, probed_at) VALUES (?, ?)", key, nowRFC3339()); err != nil {
		return fmt.Errorf("probe write %s: %w", key, err)
	}
	var probedAt string
	if err := s.db.GetContext(ctx, &probedAt,
		"SELECT probed_at FROM probes WHERE id = ?", key); err != nil {
		return fmt.Errorf("probe read %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM probes WHERE id = ?", key); err != nil {
		return fmt.Errorf("probe cleanup %s: %w", key, err)
	}
	return nil
}
