package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const entityColumns = `local_id, remote_id, shared_group_id, owner_id, original_owner_id,
	sync_state, local_modified_at, last_synced_at, name, payload, delete_confirmed`

const notTombstoned = `sync_state <> 'TOMBSTONED'`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.Entity) error {
	payload, err := e.Payload.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", common.ErrLocalStore, err)
	}

	query := `INSERT INTO entities (` + entityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		e.LocalID, dbx.NullString(e.RemoteID), e.SharedGroupID, e.OwnerID, e.OriginalOwnerID,
		string(e.SyncState), e.LocalModifiedAt.UnixNano(), nullTime(e.LastSyncedAt),
		e.Name, string(payload), e.DeleteConfirmed)
	if err != nil {
		return fmt.Errorf("failed to insert entity: %w", mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) Save(ctx context.Context, e *models.Entity) error {
	payload, err := e.Payload.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", common.ErrLocalStore, err)
	}

	query := `UPDATE entities SET remote_id = ?, shared_group_id = ?, owner_id = ?, original_owner_id = ?,
			sync_state = ?, local_modified_at = ?, last_synced_at = ?, name = ?, payload = ?, delete_confirmed = ?
		WHERE local_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		dbx.NullString(e.RemoteID), e.SharedGroupID, e.OwnerID, e.OriginalOwnerID,
		string(e.SyncState), e.LocalModifiedAt.UnixNano(), nullTime(e.LastSyncedAt),
		e.Name, string(payload), e.DeleteConfirmed, e.LocalID)
	if err != nil {
		return fmt.Errorf("failed to save entity: %w", mapError(err))
	}
	return expectOne(res, e.LocalID)
}

func (r *SQLiteRepository) Purge(ctx context.Context, localID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("failed to purge entity: %w", err)
	}
	return expectOne(res, localID)
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string, includeTombstones bool) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE local_id = ?`
	if !includeTombstones {
		query += ` AND ` + notTombstoned
	}
	return r.getOne(ctx, query, localID)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE remote_id = ?`
	return r.getOne(ctx, query, remoteID)
}

func (r *SQLiteRepository) FindByGroupOwner(ctx context.Context, groupID, ownerID string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE shared_group_id = ? AND owner_id = ? AND ` + notTombstoned
	return r.getOne(ctx, query, groupID, ownerID)
}

func (r *SQLiteRepository) FindUnboundByGroupOwner(ctx context.Context, groupID, ownerID string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE shared_group_id = ? AND owner_id = ? AND remote_id IS NULL AND ` + notTombstoned
	return r.getOne(ctx, query, groupID, ownerID)
}

func (r *SQLiteRepository) FindUnboundByName(ctx context.Context, ownerID, name string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE owner_id = ? AND name = ? AND remote_id IS NULL AND ` + notTombstoned + `
		ORDER BY local_modified_at, local_id LIMIT 1`
	return r.getOne(ctx, query, ownerID, name)
}

func (r *SQLiteRepository) List(ctx context.Context, opts ListOptions) ([]*models.Entity, error) {
	var (
		where []string
		args  []any
	)
	if opts.OwnerID != "" {
		where = append(where, `owner_id = ?`)
		args = append(args, opts.OwnerID)
	}
	if len(opts.States) > 0 {
		marks := make([]string, len(opts.States))
		for i, s := range opts.States {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, `sync_state IN (`+strings.Join(marks, ", ")+`)`)
	}
	if !opts.IncludeTombstones {
		where = append(where, notTombstoned)
	}

	query := `SELECT ` + entityColumns + ` FROM entities`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY name, local_id`
	return r.getMany(ctx, query, args...)
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE sync_state IN ('NEW', 'DIRTY') ORDER BY local_modified_at, local_id`
	return r.getMany(ctx, query)
}

func (r *SQLiteRepository) ListRemoteBound(ctx context.Context) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE remote_id IS NOT NULL ORDER BY local_id`
	return r.getMany(ctx, query)
}

func (r *SQLiteRepository) ListUnconfirmedTombstones(ctx context.Context) ([]*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities
		WHERE sync_state = 'TOMBSTONED' AND remote_id IS NOT NULL AND delete_confirmed = 0
		ORDER BY local_modified_at, local_id`
	return r.getMany(ctx, query)
}

func (r *SQLiteRepository) PurgeTombstones(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM entities
		WHERE sync_state = 'TOMBSTONED' AND delete_confirmed = 1 AND local_modified_at < ?`
	res, err := r.db.ExecContext(ctx, query, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Entity, error) {
	e, err := scanEntity(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLiteRepository) getMany(ctx context.Context, query string, args ...any) ([]*models.Entity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entities: %w", err)
	}
	defer rows.Close()

	var (
		result  []*models.Entity
		corrupt []error
	)
	for rows.Next() {
		e, err := scanEntity(rows)
		if errors.Is(err, common.ErrLocalStore) {
			corrupt = append(corrupt, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}
	if len(corrupt) > 0 {
		// readable rows are still returned
		return result, errors.Join(corrupt...)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e             models.Entity
		remoteID      sql.NullString
		state         string
		modifiedAt    int64
		lastSyncedAt  sql.NullInt64
		payload       string
		deleteConfirm bool
	)
	err := row.Scan(&e.LocalID, &remoteID, &e.SharedGroupID, &e.OwnerID, &e.OriginalOwnerID,
		&state, &modifiedAt, &lastSyncedAt, &e.Name, &payload, &deleteConfirm)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan entity: %v", common.ErrLocalStore, err)
	}

	if e.SyncState, err = models.ParseSyncState(state); err != nil {
		return nil, fmt.Errorf("%w: entity %s: %v", common.ErrLocalStore, e.LocalID, err)
	}
	if e.Payload, err = models.UnmarshalPayload([]byte(payload)); err != nil {
		return nil, fmt.Errorf("%w: entity %s: decode payload: %v", common.ErrLocalStore, e.LocalID, err)
	}
	e.RemoteID = remoteID.String
	e.LocalModifiedAt = time.Unix(0, modifiedAt)
	if lastSyncedAt.Valid {
		t := time.Unix(0, lastSyncedAt.Int64)
		e.LastSyncedAt = &t
	}
	e.DeleteConfirmed = deleteConfirm
	return &e, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func expectOne(res sql.Result, localID string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("entity %s: %w", localID, common.ErrNotFound)
	}
	return nil
}

// mapError turns unique constraint violations into common.ErrAlreadyExists.
func mapError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")) {
			return fmt.Errorf("%w: %v", common.ErrAlreadyExists, err)
		}
	}
	return err
}

// SQLiteStore is a Store over a *sql.DB.
type SQLiteStore struct {
	*SQLiteRepository
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{SQLiteRepository: NewSQLiteRepository(db), db: db}
}

// WithTx runs fn against a repository bound to a single transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteRepository(tx))
	})
}
