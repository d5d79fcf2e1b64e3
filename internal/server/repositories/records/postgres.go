package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/dmitrijs2005/fieldkeeper/internal/dbx"
	"github.com/dmitrijs2005/fieldkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `id, shared_group_id, owner_id, original_owner_id, name, payload, deleted, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*models.Record, error) {
	r := &models.Record{}
	var payload []byte
	if err := s.Scan(&r.ID, &r.SharedGroupID, &r.OwnerID, &r.OriginalOwnerID, &r.Name,
		&payload, &r.Deleted, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &r.Payload); err != nil {
			return nil, fmt.Errorf("record %s payload: %w", r.ID, err)
		}
	}
	if r.Payload == nil {
		r.Payload = map[string]any{}
	}
	return r, nil
}

func encodePayload(p map[string]any) (string, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

func (r *PostgresRepository) List(ctx context.Context, afterID string, limit int) ([]*models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records
		 WHERE NOT deleted AND id > $1
		 ORDER BY id
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM records
		 WHERE id = $1
		 `

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) error {
	payload, err := encodePayload(rec.Payload)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO records (id, shared_group_id, owner_id, original_owner_id, name, payload)
         VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.SharedGroupID, rec.OwnerID, rec.OriginalOwnerID, rec.Name, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("group %s owner %s: %w", rec.SharedGroupID, rec.OwnerID, common.ErrAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Record) (*models.Record, error) {
	payload, err := encodePayload(rec.Payload)
	if err != nil {
		return nil, err
	}

	query :=
		`UPDATE records SET name = $2, payload = $3, updated_at = now()
		 WHERE id = $1 AND NOT deleted
		 RETURNING ` + selectColumns

	out, err := scanRecord(r.db.QueryRowContext(ctx, query, rec.ID, rec.Name, payload))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("record %s: %w", rec.ID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	query :=
		`UPDATE records SET deleted = true, updated_at = now()
		 WHERE id = $1 AND NOT deleted
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	return nil
}
