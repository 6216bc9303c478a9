package queries

import (
	"context"
	"database/sql"

	"github.com/brannt/skypilot/pkg/models"
)

// ReplicaRepository mirrors the in-memory replica roster into the database so
// fleet history survives restarts.
type ReplicaRepository struct {
	db *sql.DB
}

func NewReplicaRepository(db *sql.DB) *ReplicaRepository {
	return &ReplicaRepository{db: db}
}

func (r *ReplicaRepository) Upsert(ctx context.Context, info *models.ReplicaInfo) error {
	query := `
		INSERT INTO replicas (service_name, replica_id, status, use_spot, created_at, ready_at, retired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (service_name, replica_id)
		DO UPDATE SET status = $3, ready_at = $6, retired_at = $7`

	_, err := r.db.ExecContext(ctx, query,
		info.ServiceName,
		info.ReplicaID,
		info.Status,
		info.UseSpot,
		info.CreatedAt,
		info.ReadyAt,
		info.RetiredAt,
	)
	return err
}

func (r *ReplicaRepository) GetByService(ctx context.Context, serviceName string) ([]*models.ReplicaInfo, error) {
	query := `
		SELECT service_name, replica_id, status, use_spot, created_at, ready_at, retired_at
		FROM replicas
		WHERE service_name = $1
		ORDER BY replica_id`

	rows, err := r.db.QueryContext(ctx, query, serviceName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*models.ReplicaInfo
	for rows.Next() {
		var info models.ReplicaInfo
		err := rows.Scan(
			&info.ServiceName,
			&info.ReplicaID,
			&info.Status,
			&info.UseSpot,
			&info.CreatedAt,
			&info.ReadyAt,
			&info.RetiredAt,
		)
		if err != nil {
			return nil, err
		}
		infos = append(infos, &info)
	}

	return infos, rows.Err()
}

func (r *ReplicaRepository) DeleteByService(ctx context.Context, serviceName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM replicas WHERE service_name = $1`, serviceName)
	return err
}
