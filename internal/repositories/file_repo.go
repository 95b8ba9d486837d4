package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prudhvinik1/equiptrack/internal/models"
)

const filePerm = 0o644

// FileEquipmentRepository keeps the payload in one file on disk. Writes are
// not atomic: a crash mid-write can leave a truncated file.
type FileEquipmentRepository struct {
	path string
}

func NewFileEquipmentRepository(path string) *FileEquipmentRepository {
	return &FileEquipmentRepository{path: path}
}

func (r *FileEquipmentRepository) Path() string {
	return r.path
}

func (r *FileEquipmentRepository) Save(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.WriteFile(r.path, payload, filePerm); err != nil {
		return fmt.Errorf("failed to write equipment file: %w", err)
	}
	return nil
}

func (r *FileEquipmentRepository) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat equipment file: %w", err)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read equipment file: %w", err)
	}

	return &models.EquipmentSnapshot{
		Payload:   data,
		UpdatedAt: info.ModTime(),
	}, nil
}
