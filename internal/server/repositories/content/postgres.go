package content

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SelectDesired(ctx context.Context, deviceID string, now time.Time) ([]*models.ContentRow, error) {
	query := `
		SELECT p.id, p.name, p.expiration_date,
			v.id, v.title, v.size_bytes, v.duration_seconds, v.storage_path
		FROM playlists p
		LEFT JOIN (
			playlist_videos pv
			JOIN videos v ON v.id = pv.video_id
				AND (v.expiration_date IS NULL OR v.expiration_date >= $2)
		) ON pv.playlist_id = p.id
		WHERE p.is_active = true
		  AND ($1 = '' OR EXISTS (
			SELECT 1 FROM device_playlists dp
			WHERE dp.playlist_id = p.id AND dp.device_id = $1))
		ORDER BY p.id, pv.position`

	rows, err := r.db.QueryContext(ctx, query, deviceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select desired content: %w", err)
	}
	defer rows.Close()

	var result []*models.ContentRow
	for rows.Next() {
		var (
			row      models.ContentRow
			exp      sql.NullTime
			videoID  sql.NullInt64
			title    sql.NullString
			size     sql.NullInt64
			duration sql.NullFloat64
			path     sql.NullString
		)
		if err := rows.Scan(&row.PlaylistID, &row.PlaylistName, &exp,
			&videoID, &title, &size, &duration, &path); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		row.PlaylistExpirationDate = dbx.TimePtr(exp)
		row.VideoID = videoID.Int64
		row.VideoTitle = title.String
		row.SizeBytes = size.Int64
		row.DurationSeconds = duration.Float64
		row.StoragePath = path.String
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content rows: %w", err)
	}
	return result, nil
}
