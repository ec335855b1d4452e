package absence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists absence requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const requestColumns = `id, student_id, schedule_id, reason_type, description, status, created_at`

// Insert writes new requests, returning them with assigned ids.
func (r *Repository) Insert(ctx context.Context, reqs []Request) ([]Request, error) {
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		if req.CreatedAt.IsZero() {
			req.CreatedAt = time.Now().UTC()
		}
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO absence_requests (student_id, schedule_id, reason_type, description, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, req.StudentID, req.ScheduleID, req.ReasonType, req.Description, req.Status, req.CreatedAt)
		if err := row.Scan(&req.ID); err != nil {
			return out, err
		}
		out = append(out, req)
	}
	return out, nil
}

// ByID returns one request, or nil when unknown.
func (r *Repository) ByID(ctx context.Context, id int64) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM absence_requests WHERE id = $1`, id)
	var req Request
	if err := row.Scan(&req.ID, &req.StudentID, &req.ScheduleID, &req.ReasonType, &req.Description, &req.Status, &req.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// List returns requests newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status RequestStatus) ([]Request, error) {
	query := `SELECT ` + requestColumns + ` FROM absence_requests ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + requestColumns + ` FROM absence_requests WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.StudentID, &req.ScheduleID, &req.ReasonType, &req.Description, &req.Status, &req.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// UpdateStatus sets the decision state of a request.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status RequestStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE absence_requests SET status = $2 WHERE id = $1`, id, status)
	return err
}

// UpdateReason edits the justification of a request.
func (r *Repository) UpdateReason(ctx context.Context, id int64, reasonType, description string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE absence_requests SET reason_type = $2, description = $3 WHERE id = $1`, id, reasonType, description)
	return err
}
