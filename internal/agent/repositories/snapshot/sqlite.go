package snapshot

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fleetsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Load(ctx context.Context) (Snapshot, error) {
	result := make(Snapshot)

	rows, err := r.db.QueryContext(ctx, `SELECT playlist_id FROM snapshot_playlists`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot playlists: %w", err)
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan snapshot playlist: %w", err)
		}
		result[id] = []int64{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate snapshot playlists: %w", err)
	}
	rows.Close()

	rows, err = r.db.QueryContext(ctx, `
		SELECT playlist_id, video_id FROM snapshot ORDER BY playlist_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var playlistID, videoID int64
		if err := rows.Scan(&playlistID, &videoID); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		result[playlistID] = append(result[playlistID], videoID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}

	return result, nil
}

// Replace discards the stored snapshot and writes s. Callers run it inside a
// transaction so readers never see a partial snapshot.
func (r *SQLiteRepository) Replace(ctx context.Context, s Snapshot) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshot`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snapshot_playlists`); err != nil {
		return fmt.Errorf("failed to clear snapshot playlists: %w", err)
	}

	for playlistID, videos := range s {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO snapshot_playlists (playlist_id) VALUES (?)`, playlistID); err != nil {
			return fmt.Errorf("failed to insert snapshot playlist %d: %w", playlistID, err)
		}
		for pos, videoID := range videos {
			if _, err := r.db.ExecContext(ctx,
				`INSERT INTO snapshot (playlist_id, position, video_id) VALUES (?, ?, ?)`,
				playlistID, pos, videoID); err != nil {
				return fmt.Errorf("failed to insert snapshot row %d/%d: %w", playlistID, pos, err)
			}
		}
	}
	return nil
}
