package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Student is a roster entry consumed by the reconciler and the filters.
type Student struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Group     string  `json:"group"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Profile is a staff account; ID is the UUID the account system keys
// profiles by.
type Profile struct {
	ID         string  `json:"id"`
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
}

// Repository reads students and profiles. This subsystem never mutates them.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentByID returns one student, or nil when deleted or unknown.
func (r *Repository) StudentByID(ctx context.Context, id int64) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, "group", avatar_url FROM students WHERE id = $1`, id)
	var s Student
	if err := row.Scan(&s.ID, &s.Name, &s.Group, &s.AvatarURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// StudentsByGroup returns a group's roster ordered by name.
func (r *Repository) StudentsByGroup(ctx context.Context, group string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, "group", avatar_url FROM students WHERE "group" = $1 ORDER BY name`, group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Group, &s.AvatarURL); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ProfileByID returns one staff profile, or nil when unknown.
func (r *Repository) ProfileByID(ctx context.Context, id string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, full_name, department, role FROM profiles WHERE id = $1`, id)
	var p Profile
	if err := row.Scan(&p.ID, &p.FullName, &p.Department, &p.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Profiles returns every staff profile; the filter widgets join against it.
func (r *Repository) Profiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, full_name, department, role FROM profiles ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Department, &p.Role); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
