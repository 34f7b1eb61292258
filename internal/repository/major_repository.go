package repository

import (
	"context"

	"github.com/stemsi/roster-backend/internal/model"
)

const majorColumns = `id, name, created_at, updated_at`

func (r *pgQueries) GetMajor(ctx context.Context, id int) (*model.Major, error) {
	m := &model.Major{}
	err := r.q.QueryRow(ctx, `SELECT `+majorColumns+` FROM majors WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

// GetMajorByName matches the name exactly (case-sensitive).
func (r *pgQueries) GetMajorByName(ctx context.Context, name string) (*model.Major, error) {
	m := &model.Major{}
	err := r.q.QueryRow(ctx, `SELECT `+majorColumns+` FROM majors WHERE name = $1`, name).
		Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return m, nil
}

func (r *pgQueries) ListMajors(ctx context.Context) ([]model.Major, error) {
	rows, err := r.q.Query(ctx, `SELECT `+majorColumns+` FROM majors ORDER BY name ASC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	majors := []model.Major{}
	for rows.Next() {
		var m model.Major
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		majors = append(majors, m)
	}
	return majors, rows.Err()
}

func (r *pgQueries) CountStudentsByMajor(ctx context.Context, majorID int) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE major_id = $1`, majorID).Scan(&n)
	return n, mapErr(err)
}

// MajorStudentCounts returns every major with its student count, zero included.
func (r *pgQueries) MajorStudentCounts(ctx context.Context) ([]model.MajorCount, error) {
	rows, err := r.q.Query(ctx,
		`SELECT m.id, m.name, COUNT(s.student_id)
		 FROM majors m
		 LEFT JOIN students s ON s.major_id = m.id
		 GROUP BY m.id, m.name
		 ORDER BY m.name ASC`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	counts := []model.MajorCount{}
	for rows.Next() {
		var c model.MajorCount
		if err := rows.Scan(&c.MajorID, &c.Label, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *pgQueries) CreateMajor(ctx context.Context, m *model.Major) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO majors (name) VALUES ($1) RETURNING id, created_at, updated_at`,
		m.Name,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	return mapErr(err)
}

func (r *pgQueries) UpdateMajor(ctx context.Context, m *model.Major) error {
	err := r.q.QueryRow(ctx,
		`UPDATE majors SET name = $1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $2
		 RETURNING created_at, updated_at`,
		m.Name, m.ID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	return mapErr(err)
}

func (r *pgQueries) DeleteMajor(ctx context.Context, id int) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM majors WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
