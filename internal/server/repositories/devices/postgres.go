package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fleetsync/internal/common"
	"github.com/dmitrijs2005/fleetsync/internal/dbx"
	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectDevice = `SELECT id, name, COALESCE(lan_ip, ''), COALESCE(wifi_ip, ''),
	is_active, lan_active, wifi_active, last_seen, last_probed_at FROM devices`

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var result []*models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDevice+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}
	return d, nil
}

func (r *PostgresRepository) UpdateLiveness(ctx context.Context, st *models.DeviceStatus) error {
	query := `
		UPDATE devices
		SET is_active = $2, lan_active = $3, wifi_active = $4,
			last_probed_at = $5, last_seen = COALESCE($6, last_seen)
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		st.DeviceID, st.IsActive, st.LanActive, st.WifiActive, st.ProbedAt, dbx.NullTime(st.LastSeen))
	if err != nil {
		return fmt.Errorf("failed to update device %s: %w", st.DeviceID, err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*models.Device, error) {
	var (
		d              models.Device
		seen, probedAt sql.NullTime
	)
	err := s.Scan(&d.ID, &d.Name, &d.LanIP, &d.WifiIP,
		&d.IsActive, &d.LanActive, &d.WifiActive, &seen, &probedAt)
	if err != nil {
		return nil, err
	}
	d.LastSeen = dbx.TimePtr(seen)
	d.LastProbedAt = dbx.TimePtr(probedAt)
	return &d, nil
}
