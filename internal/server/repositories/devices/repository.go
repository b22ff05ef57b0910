// Package devices provides the PostgreSQL repository for device liveness.
package devices

import (
	"context"

	"github.com/dmitrijs2005/fleetsync/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Device, error)
	GetByID(ctx context.Context, id string) (*models.Device, error)
	// UpdateLiveness writes one probe outcome. last_seen only moves when
	// the device answered on some interface.
	UpdateLiveness(ctx context.Context, st *models.DeviceStatus) error
}
