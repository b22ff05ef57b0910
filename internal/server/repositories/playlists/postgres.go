package playlists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SelectDue only touches rows whose window boundary has been crossed, which
// the partial indexes on start_date/expiration_date keep cheap. Playlists
// without any window are left to operators.
func (r *PostgresRepository) SelectDue(ctx context.Context, now time.Time) ([]*models.Playlist, error) {
	query := `
		SELECT id, name, start_date, expiration_date, is_active FROM playlists
		WHERE (start_date IS NOT NULL OR expiration_date IS NOT NULL)
		  AND (
			(is_active = false
				AND (start_date IS NULL OR start_date <= $1)
				AND (expiration_date IS NULL OR expiration_date >= $1))
			OR
			(is_active = true
				AND ((start_date IS NOT NULL AND start_date > $1)
					OR (expiration_date IS NOT NULL AND expiration_date < $1)))
		  )
		ORDER BY id
		FOR UPDATE`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due playlists: %w", err)
	}
	defer rows.Close()

	var result []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlists: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	query := `UPDATE playlists SET is_active = $2, updated_at = now() WHERE id = $1 AND is_active <> $2`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return false, fmt.Errorf("failed to update playlist %d: %w", id, err)
	}
	return dbx.AffectedOne(res)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Playlist, error) {
	query := `SELECT id, name, start_date, expiration_date, is_active FROM playlists WHERE id = $1`
	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %d: %w", id, err)
	}
	return p, nil
}

func (r *PostgresRepository) ListInverted(ctx context.Context) ([]int64, error) {
	query := `
		SELECT id FROM playlists
		WHERE start_date IS NOT NULL AND expiration_date IS NOT NULL
		  AND expiration_date < start_date
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list inverted playlists: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlists: %w", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p          models.Playlist
		start, exp sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.Name, &start, &exp, &p.IsActive); err != nil {
		return nil, err
	}
	p.StartDate = dbx.TimePtr(start)
	p.ExpirationDate = dbx.TimePtr(exp)
	return &p, nil
}
