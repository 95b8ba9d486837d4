package repositories

import (
	"context"
	"errors"

	"github.com/prudhvinik1/equiptrack/internal/models"
)

var ErrNotFound = errors.New("not found")

// EquipmentRepository stores the single current equipment payload.
// Save overwrites whatever was stored before.
type EquipmentRepository interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) (*models.EquipmentSnapshot, error)
}
