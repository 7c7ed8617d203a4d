package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/opencontainers/go-digest"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Milliseconds SQLite waits on a locked database before failing.
const busyTimeout = 5000

// SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Opens the database at path, creating it if needed, and applies pending
// migrations.
//
// The special path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn, err := dataSource(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	// A single connection serializes writers and keeps in-memory databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	if err := migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return &Store{db: db}, nil
}

// Builds the driver DSN for path, creating its parent directory.
func dataSource(path string) (string, error) {
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", busyTimeout)
	if path == ":memory:" {
		return "file::memory:?" + pragmas, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)", nil
}

// Closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const instanceColumns = `runtime_id, team_id, challenge_id, image, ports, created_at, expires_at`

// Returns the records owned by team, oldest first.
func (s *Store) FindByOwner(ctx context.Context, team string) ([]instance.Instance, error) {
	return s.queryInstances(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE team_id = ? ORDER BY created_at, runtime_id`,
		team,
	)
}

// Returns the record for team and challenge, or [ErrNotFound].
func (s *Store) FindOne(ctx context.Context, team, challengeID string) (instance.Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE team_id = ? AND challenge_id = ?`,
		team, challengeID,
	)

	inst, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return instance.Instance{}, ErrNotFound
	}
	if err != nil {
		return instance.Instance{}, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return inst, nil
}

// Returns the records whose expiry is at or before now, soonest first.
func (s *Store) FindExpired(ctx context.Context, now time.Time) ([]instance.Instance, error) {
	return s.queryInstances(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE expires_at <= ? ORDER BY expires_at, runtime_id`,
		now.UnixMilli(),
	)
}

// Inserts a record.
//
// Returns [ErrConflict] if the runtime ID is already recorded or the team
// already has a record for the challenge.
func (s *Store) Insert(ctx context.Context, inst instance.Instance) error {
	ports, err := json.Marshal(inst.Ports)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO instances (`+instanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inst.RuntimeID, inst.Team, inst.ChallengeID, inst.Image, string(ports),
		inst.CreatedAt.UnixMilli(), inst.ExpiresAt.UnixMilli(),
	)
	if isConstraint(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Deletes the records for a runtime ID and returns how many were removed.
func (s *Store) DeleteByRuntimeID(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instances WHERE runtime_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return n, nil
}

// Returns the image published under d, or [ErrNotFound].
func (s *Store) ResolveImage(ctx context.Context, d digest.Digest) (instance.ChallengeImage, error) {
	var (
		challengeID string
		metadata    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT challenge_id, metadata FROM images WHERE digest = ?`, d.String(),
	).Scan(&challengeID, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return instance.ChallengeImage{}, ErrNotFound
	}
	if err != nil {
		return instance.ChallengeImage{}, fmt.Errorf("%w: %w", ErrStore, err)
	}

	img := instance.ChallengeImage{Digest: d, ChallengeID: challengeID}
	if err := json.Unmarshal([]byte(metadata), &img.Metadata); err != nil {
		return instance.ChallengeImage{}, fmt.Errorf("%w: decode metadata: %w", ErrStore, err)
	}
	return img, nil
}

// Publishes an image.
//
// Images are immutable: registering the same digest again with the same
// challenge is a no-op, and with a different challenge is [ErrConflict].
func (s *Store) RegisterImage(ctx context.Context, img instance.ChallengeImage) error {
	existing, err := s.ResolveImage(ctx, img.Digest)
	switch {
	case err == nil && existing.ChallengeID == img.ChallengeID:
		return nil
	case err == nil:
		return fmt.Errorf("%w: %s is published for challenge %q", ErrConflict, img.Digest, existing.ChallengeID)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	metadata, err := json.Marshal(img.Metadata)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if img.Metadata == nil {
		metadata = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO images (digest, challenge_id, metadata, registered_at) VALUES (?, ?, ?, ?)`,
		img.Digest.String(), img.ChallengeID, string(metadata), time.Now().UTC().UnixMilli(),
	)
	if isConstraint(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

// Runs a query returning instance rows.
func (s *Store) queryInstances(ctx context.Context, query string, args ...any) ([]instance.Instance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer rows.Close()

	var out []instance.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Scans one row selected with instanceColumns.
func scanInstance(row scanner) (instance.Instance, error) {
	var (
		inst      instance.Instance
		ports     string
		createdAt int64
		expiresAt int64
	)
	if err := row.Scan(&inst.RuntimeID, &inst.Team, &inst.ChallengeID, &inst.Image, &ports, &createdAt, &expiresAt); err != nil {
		return instance.Instance{}, err
	}
	if err := json.Unmarshal([]byte(ports), &inst.Ports); err != nil {
		return instance.Instance{}, fmt.Errorf("decode ports: %w", err)
	}
	inst.CreatedAt = time.UnixMilli(createdAt).UTC()
	inst.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return inst, nil
}

// Reports whether err is a uniqueness or primary key violation.
func isConstraint(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(serr.Error(), "UNIQUE constraint failed")
}
