package queries

import (
	"context"
	"database/sql"
	"time"
)

// RateSample is one evaluation cycle's observed request rate, kept for
// capacity planning and dashboards.
type RateSample struct {
	ID             int       `json:"id"`
	ServiceName    string    `json:"service_name"`
	Timestamp      time.Time `json:"timestamp"`
	ObservedQPS    float64   `json:"observed_qps"`
	TargetReplicas int       `json:"target_replicas"`
	AliveReplicas  int       `json:"alive_replicas"`
}

type RateSampleRepository struct {
	db *sql.DB
}

func NewRateSampleRepository(db *sql.DB) *RateSampleRepository {
	return &RateSampleRepository{db: db}
}

func (r *RateSampleRepository) Insert(ctx context.Context, sample *RateSample) error {
	query := `
		INSERT INTO rate_samples (service_name, timestamp, observed_qps, target_replicas, alive_replicas)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		sample.ServiceName,
		sample.Timestamp,
		sample.ObservedQPS,
		sample.TargetReplicas,
		sample.AliveReplicas,
	).Scan(&sample.ID)
}

// GetByService returns samples newer than since, newest first.
func (r *RateSampleRepository) GetByService(ctx context.Context, serviceName string, since time.Time, limit int) ([]*RateSample, error) {
	query := `
		SELECT id, service_name, timestamp, observed_qps, target_replicas, alive_replicas
		FROM rate_samples
		WHERE service_name = $1 AND timestamp > $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, serviceName, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*RateSample
	for rows.Next() {
		var s RateSample
		err := rows.Scan(
			&s.ID,
			&s.ServiceName,
			&s.Timestamp,
			&s.ObservedQPS,
			&s.TargetReplicas,
			&s.AliveReplicas,
		)
		if err != nil {
			return nil, err
		}
		samples = append(samples, &s)
	}
	return samples, rows.Err()
}

// Prune deletes samples older than the retention cutoff.
func (r *RateSampleRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rate_samples WHERE timestamp < $1`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
