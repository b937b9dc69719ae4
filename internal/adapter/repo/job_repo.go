package repo

import (
	"context"

	"motionlab/internal/domain"
	"motionlab/internal/infra"
	"motionlab/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new generation job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record. The (id, provider) pair is the key: job ids
// are provider-scoped and may collide across providers.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.OrderID,
		job.Provider,
		job.Model,
		job.Status,
		job.ResultRef,
		job.ErrorKind,
		job.ErrorDetail,
	)
	return err
}

// Update persists status, result, and error fields for a job.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJob,
		job.ID,
		job.Provider,
		job.Status,
		job.ResultRef,
		job.ErrorKind,
		job.ErrorDetail,
	)
	return err
}

// ListByOrderID returns the order's jobs in submission order.
func (r *JobRepositoryPG) ListByOrderID(ctx context.Context, orderID string) ([]domain.Job, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListJobsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(
			&j.ID,
			&j.OrderID,
			&j.Provider,
			&j.Model,
			&j.Status,
			&j.ResultRef,
			&j.ErrorKind,
			&j.ErrorDetail,
			&j.CreatedAt,
			&j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
