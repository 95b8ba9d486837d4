package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/equiptrack/internal/models"
)

// currentSnapshotID is the primary key of the only row the repository uses.
const currentSnapshotID = "current"

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS equipment_snapshots (
	id         TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresEquipmentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEquipmentRepository(pool *pgxpool.Pool) *PostgresEquipmentRepository {
	return &PostgresEquipmentRepository{pool: pool}
}

// EnsureSchema creates the snapshots table when it does not exist yet.
func (r *PostgresEquipmentRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create equipment_snapshots: %w", err)
	}
	return nil
}

// Save upserts the single snapshot row. The payload column is BYTEA so the
// indented text is kept exactly; JSONB would normalise it.
func (r *PostgresEquipmentRepository) Save(ctx context.Context, payload []byte) error {
	query := `INSERT INTO equipment_snapshots (id, payload, version)
	          VALUES ($1, $2, 1)
	          ON CONFLICT (id) DO UPDATE
	          SET payload = EXCLUDED.payload,
	              version = equipment_snapshots.version + 1,
	              updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, currentSnapshotID, payload); err != nil {
		return fmt.Errorf("failed to save equipment: %w", err)
	}
	return nil
}

func (r *PostgresEquipmentRepository) Load(ctx context.Context) (*models.EquipmentSnapshot, error) {
	query := `SELECT payload, version, updated_at
	          FROM equipment_snapshots
	          WHERE id = $1`

	var snapshot models.EquipmentSnapshot
	err := r.pool.QueryRow(ctx, query, currentSnapshotID).Scan(
		&snapshot.Payload,
		&snapshot.Version,
		&snapshot.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get equipment: %w", err)
	}
	return &snapshot, nil
}
