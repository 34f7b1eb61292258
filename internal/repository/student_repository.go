package repository

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/roster-backend/internal/model"
)

const studentSelect = `
	SELECT s.student_id, s.name, s.major_id, m.name, s.notes, s.created_at, s.updated_at
	FROM students s
	JOIN majors m ON m.id = s.major_id`

func scanStudent(row pgx.Row, s *model.Student) error {
	return row.Scan(&s.ID, &s.Name, &s.MajorID, &s.MajorName, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
}

func (r *pgQueries) GetStudent(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	if err := scanStudent(r.q.QueryRow(ctx, studentSelect+` WHERE s.student_id = $1`, id), s); err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// ListStudents applies the filter and orders by student id ascending.
func (r *pgQueries) ListStudents(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	query := studentSelect
	var (
		conds []string
		args  []any
	)

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(s.name ILIKE "+p+" OR s.student_id::text ILIKE "+p+")")
	}
	if filter.MajorID != nil {
		args = append(args, *filter.MajorID)
		conds = append(conds, "s.major_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.student_id ASC"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := scanStudent(rows, &s); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *pgQueries) CreateStudent(ctx context.Context, s *model.Student) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO students (student_id, name, major_id, notes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		s.ID, s.Name, s.MajorID, s.Notes,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}

// CreateStudents bulk-inserts with COPY. Constraint violations abort the whole batch.
func (r *pgQueries) CreateStudents(ctx context.Context, students []model.Student) (int64, error) {
	if len(students) == 0 {
		return 0, nil
	}
	n, err := r.q.CopyFrom(
		ctx,
		pgx.Identifier{"students"},
		[]string{"student_id", "name", "major_id", "notes"},
		pgx.CopyFromSlice(len(students), func(i int) ([]any, error) {
			s := students[i]
			return []any{s.ID, s.Name, s.MajorID, s.Notes}, nil
		}),
	)
	return n, mapErr(err)
}

// UpdateStudent rewrites every column, including the primary key.
func (r *pgQueries) UpdateStudent(ctx context.Context, currentID int, s *model.Student) error {
	err := r.q.QueryRow(ctx,
		`UPDATE students
		 SET student_id = $1, name = $2, major_id = $3, notes = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE student_id = $5
		 RETURNING created_at, updated_at`,
		s.ID, s.Name, s.MajorID, s.Notes, currentID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}

func (r *pgQueries) DeleteStudent(ctx context.Context, id int) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM students WHERE student_id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
