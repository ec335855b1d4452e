package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, schedule_id, date, status, absence_request_id`

// Upsert writes a teacher-marked status keyed on (student, date, schedule).
// The unique index is declared NULLS NOT DISTINCT, so re-marking updates in
// place even on the null-schedule fallback rows.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, schedule_id, date, status, absence_request_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, date, schedule_id) DO UPDATE SET
			status = EXCLUDED.status,
			absence_request_id = EXCLUDED.absence_request_id
	`, rec.StudentID, rec.ScheduleID, rec.Date, rec.Status, rec.AbsenceRequestID)
	return err
}

// UpsertAll writes one status for many students of the same class in a
// single statement (the mark-all control).
func (r *Repository) UpsertAll(ctx context.Context, studentIDs []int64, scheduleID int64, date string, status Status) error {
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, schedule_id, date, status)
		SELECT unnest($1::bigint[]), $2, $3, $4
		ON CONFLICT (student_id, date, schedule_id) DO UPDATE SET
			status = EXCLUDED.status
	`, int64Array(studentIDs), scheduleID, date, status)
	return err
}

// Find returns the record for (student, date, schedule), treating a nil
// scheduleID as the null-schedule fallback row. Returns nil when absent.
func (r *Repository) Find(ctx context.Context, studentID int64, date string, scheduleID *int64) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance WHERE student_id = $1 AND date = $2 AND schedule_id = $3`
	if scheduleID == nil {
		query = `SELECT ` + recordColumns + ` FROM attendance WHERE student_id = $1 AND date = $2 AND schedule_id IS NULL`
	}

	args := []any{studentID, date}
	if scheduleID != nil {
		args = append(args, *scheduleID)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.ScheduleID, &rec.Date, &rec.Status, &rec.AbsenceRequestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, schedule_id, date, status, absence_request_id)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.StudentID, rec.ScheduleID, rec.Date, rec.Status, rec.AbsenceRequestID)
	return err
}

// SetExcused updates an existing record to an excused absence linked to the
// given request.
func (r *Repository) SetExcused(ctx context.Context, id, requestID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET status = $2, absence_request_id = $3 WHERE id = $1
	`, id, ExcusedAbsent, requestID)
	return err
}

// RevertByRequest turns every record linked to a request into a plain
// absence and clears the link. It covers null-schedule fallback rows too.
func (r *Repository) RevertByRequest(ctx context.Context, requestID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET status = $2, absence_request_id = NULL WHERE absence_request_id = $1
	`, requestID, Absent)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ByDate returns all records for one calendar date.
func (r *Repository) ByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE date = $1`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ScheduleID, &rec.Date, &rec.Status, &rec.AbsenceRequestID); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// int64Array renders ids in Postgres array literal form for unnest.
func int64Array(ids []int64) string {
	out := "{"
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += itoa(id)
	}
	return out + "}"
}

func itoa(i int64) string { return fmt.Sprintf("%d", i) }
