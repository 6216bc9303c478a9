package queries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/brannt/skypilot/pkg/models"
)

var ErrServiceNotFound = errors.New("service not found")

type ServiceRepository struct {
	db *sql.DB
}

func NewServiceRepository(db *sql.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) GetAll(ctx context.Context) ([]*models.Service, error) {
	query := `
		SELECT id, name, policy, status, created_at, updated_at
		FROM services
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}

	return services, rows.Err()
}

func (r *ServiceRepository) GetByName(ctx context.Context, name string) (*models.Service, error) {
	query := `
		SELECT id, name, policy, status, created_at, updated_at
		FROM services
		WHERE name = $1`

	service, err := scanService(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, ErrServiceNotFound
	}
	return service, err
}

func (r *ServiceRepository) Create(ctx context.Context, service *models.Service) error {
	policyJSON, err := service.PolicyJSON()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO services (id, name, policy, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		service.ID,
		service.Name,
		policyJSON,
		service.Status,
	).Scan(&service.CreatedAt, &service.UpdatedAt)
}

func (r *ServiceRepository) Update(ctx context.Context, service *models.Service) error {
	policyJSON, err := service.PolicyJSON()
	if err != nil {
		return err
	}

	query := `
		UPDATE services
		SET policy = $2, status = $3, updated_at = NOW()
		WHERE name = $1
		RETURNING updated_at`

	err = r.db.QueryRowContext(ctx, query,
		service.Name,
		policyJSON,
		service.Status,
	).Scan(&service.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrServiceNotFound
	}
	return err
}

func (r *ServiceRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE name = $1`, name)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanService(row rowScanner) (*models.Service, error) {
	var service models.Service
	var policyJSON []byte

	err := row.Scan(
		&service.ID,
		&service.Name,
		&policyJSON,
		&service.Status,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := service.ParsePolicy(policyJSON); err != nil {
		return nil, err
	}
	return &service, nil
}
