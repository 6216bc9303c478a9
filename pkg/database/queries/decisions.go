package queries

import (
	"context"
	"database/sql"

	"github.com/brannt/skypilot/pkg/models"
)

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Insert(ctx context.Context, record *models.DecisionRecord) error {
	query := `
		INSERT INTO scaling_decisions
			(service_name, timestamp, operator, replica_id, target_replicas, alive_replicas, observed_qps, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		record.ServiceName,
		record.Timestamp,
		record.Operator,
		record.ReplicaID,
		record.TargetReplicas,
		record.AliveReplicas,
		record.ObservedQPS,
		record.Status,
	).Scan(&record.ID)
}

// GetByService returns the most recent decisions for a service, newest first.
func (r *DecisionRepository) GetByService(ctx context.Context, serviceName string, limit int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT id, service_name, timestamp, operator, replica_id, target_replicas, alive_replicas, observed_qps, status
		FROM scaling_decisions
		WHERE service_name = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, serviceName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func (r *DecisionRepository) GetRecent(ctx context.Context, limit int) ([]*models.DecisionRecord, error) {
	query := `
		SELECT id, service_name, timestamp, operator, replica_id, target_replicas, alive_replicas, observed_qps, status
		FROM scaling_decisions
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecisions(rows *sql.Rows) ([]*models.DecisionRecord, error) {
	var records []*models.DecisionRecord
	for rows.Next() {
		var rec models.DecisionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.ServiceName,
			&rec.Timestamp,
			&rec.Operator,
			&rec.ReplicaID,
			&rec.TargetReplicas,
			&rec.AliveReplicas,
			&rec.ObservedQPS,
			&rec.Status,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
