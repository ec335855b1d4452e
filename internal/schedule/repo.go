package schedule

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

// Repository persists schedule entries in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, date, "group", teacher_name, subject, time, load_type, classroom`

// UpsertBatch writes one batch of entries keyed on the natural tuple, so a
// re-run is a no-op for unchanged rows and an update for changed ones.
func (r *Repository) UpsertBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO schedule (date, "group", teacher_name, subject, time, load_type, classroom) VALUES `)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		sb.WriteString("(")
		for j := 1; j <= 7; j++ {
			if j > 1 {
				sb.WriteString(",")
			}
			sb.WriteString("$" + strconv.Itoa(base+j))
		}
		sb.WriteString(")")
		args = append(args, e.Date, e.Group, e.TeacherName, e.Subject, e.Time, e.LoadType, e.Classroom)
	}
	sb.WriteString(`
		ON CONFLICT (date, "group", teacher_name, subject, time) DO UPDATE SET
			load_type = EXCLUDED.load_type,
			classroom = EXCLUDED.classroom
	`)

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// ByID returns a single entry, or nil when it does not exist.
func (r *Repository) ByID(ctx context.Context, id int64) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM schedule WHERE id = $1`, id)
	return scanEntry(row)
}

// ByDate returns all entries on one calendar date.
func (r *Repository) ByDate(ctx context.Context, date string) ([]Entry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM schedule WHERE date = $1 ORDER BY time`, date)
}

// ByDateAndGroup returns every class a group has on one date.
func (r *Repository) ByDateAndGroup(ctx context.Context, date, group string) ([]Entry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM schedule WHERE date = $1 AND "group" = $2 ORDER BY time`, date, group)
}

// ByDateSubjectTime finds entries on a date whose subject contains the given
// text (case-insensitive) at an exact time. Used to recover a class identity
// from the request-description prefix when the group lookup comes up empty.
func (r *Repository) ByDateSubjectTime(ctx context.Context, date, subject, timeRange string) ([]Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM schedule WHERE date = $1 AND subject ILIKE '%' || $2 || '%' AND time = $3 ORDER BY id`,
		date, subject, timeRange)
}

// ByGroupSubjectTime finds a group's entries matching a subject substring
// (case-insensitive) at an exact time, any date. Serves the oldest
// description format, which carried no date at all.
func (r *Repository) ByGroupSubjectTime(ctx context.Context, group, subject, timeRange string) ([]Entry, error) {
	return r.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM schedule WHERE "group" = $1 AND subject ILIKE '%' || $2 || '%' AND time = $3 ORDER BY date, id`,
		group, subject, timeRange)
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Date, &e.Group, &e.TeacherName, &e.Subject, &e.Time, &e.LoadType, &e.Classroom); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row *sql.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Date, &e.Group, &e.TeacherName, &e.Subject, &e.Time, &e.LoadType, &e.Classroom); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
