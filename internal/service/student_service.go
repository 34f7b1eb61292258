package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// StudentService manages roster entries.
type StudentService struct {
	store repository.Store
	guard *Guard
	audit *AuditService
	log   zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(store repository.Store, guard *Guard, audit *AuditService, log zerolog.Logger) *StudentService {
	return &StudentService{
		store: store,
		guard: guard,
		audit: audit,
		log:   log.With().Str("component", "student_service").Logger(),
	}
}

// List returns students matching filter, ordered by id. Never audited.
func (s *StudentService) List(ctx context.Context, actor *model.Identity, filter model.StudentFilter) ([]model.Student, error) {
	if err := s.guard.Authorize(actor, OpListStudents); err != nil {
		return nil, err
	}
	return listStudents(ctx, s.store, filter)
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, actor *model.Identity, id int) (*model.Student, error) {
	if err := s.guard.Authorize(actor, OpViewStudent); err != nil {
		return nil, err
	}
	if err := checkID("student_id", id); err != nil {
		return nil, err
	}
	return getStudent(ctx, s.store, id)
}

// Create adds a student under a caller-supplied id.
func (s *StudentService) Create(ctx context.Context, actor *model.Identity, req model.StudentRequest) (*model.Student, error) {
	var created *model.Student
	err := s.audit.Mutate(ctx, actor, OpCreateStudent, func(tx repository.Tx) (Note, error) {
		st, err := studentFromRequest(req)
		if err != nil {
			return Note{}, err
		}
		if err := ensureStudentIDFree(ctx, tx, st.ID); err != nil {
			return Note{}, err
		}
		major, err := resolveMajor(ctx, tx, st.MajorID)
		if err != nil {
			return Note{}, err
		}

		if err := tx.CreateStudent(ctx, st); err != nil {
			return Note{}, studentWriteErr("create student", err)
		}
		st.MajorName = major.Name
		created = st
		return Note{ActionCreateStudent, fmt.Sprintf("Added student: %s (ID: %d)", st.Name, st.ID)}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update rewrites the student stored under currentID. The id itself may change.
func (s *StudentService) Update(ctx context.Context, actor *model.Identity, currentID int, req model.StudentRequest) (*model.Student, error) {
	var updated *model.Student
	err := s.audit.Mutate(ctx, actor, OpUpdateStudent, func(tx repository.Tx) (Note, error) {
		if err := checkID("id", currentID); err != nil {
			return Note{}, err
		}
		st, err := studentFromRequest(req)
		if err != nil {
			return Note{}, err
		}

		current, err := getStudent(ctx, tx, currentID)
		if err != nil {
			return Note{}, err
		}
		if st.ID != currentID {
			if err := ensureStudentIDFree(ctx, tx, st.ID); err != nil {
				return Note{}, err
			}
		}
		major, err := resolveMajor(ctx, tx, st.MajorID)
		if err != nil {
			return Note{}, err
		}

		if err := tx.UpdateStudent(ctx, currentID, st); err != nil {
			return Note{}, studentWriteErr("update student", err)
		}
		st.MajorName = major.Name
		updated = st
		return Note{ActionEditStudent, fmt.Sprintf("Edited student: %s (ID: %d)", current.Name, current.ID)}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a student.
func (s *StudentService) Delete(ctx context.Context, actor *model.Identity, id int) error {
	return s.audit.Mutate(ctx, actor, OpDeleteStudent, func(tx repository.Tx) (Note, error) {
		if err := checkID("id", id); err != nil {
			return Note{}, err
		}
		current, err := getStudent(ctx, tx, id)
		if err != nil {
			return Note{}, err
		}
		if err := tx.DeleteStudent(ctx, id); err != nil {
			return Note{}, studentWriteErr("delete student", err)
		}
		return Note{ActionDeleteStudent, fmt.Sprintf("Deleted student: %s (ID: %d)", current.Name, current.ID)}, nil
	})
}

func studentFromRequest(req model.StudentRequest) (*model.Student, error) {
	if err := checkID("student_id", req.ID); err != nil {
		return nil, err
	}
	name, err := cleanName("student_name", req.Name)
	if err != nil {
		return nil, err
	}
	if err := checkID("major_id", req.MajorID); err != nil {
		return nil, err
	}
	notes, err := cleanNotes(req.Notes)
	if err != nil {
		return nil, err
	}
	return &model.Student{ID: req.ID, Name: name, MajorID: req.MajorID, Notes: notes}, nil
}

// listStudents validates the major filter before listing. An unknown major is ErrNotFound.
func listStudents(ctx context.Context, r repository.CatalogReader, filter model.StudentFilter) ([]model.Student, error) {
	if filter.MajorID != nil {
		if err := checkID("major_id", *filter.MajorID); err != nil {
			return nil, err
		}
		if _, err := getMajor(ctx, r, *filter.MajorID); err != nil {
			return nil, err
		}
	}
	if utf8.RuneCountInString(filter.Query) > maxNameLen {
		return nil, invalid("q", fmt.Sprintf("must be at most %d characters", maxNameLen))
	}
	students, err := r.ListStudents(ctx, filter)
	if err != nil {
		return nil, storeFailure("list students", err)
	}
	return students, nil
}

func getStudent(ctx context.Context, r repository.CatalogReader, id int) (*model.Student, error) {
	st, err := r.GetStudent(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: student %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storeFailure("get student", err)
	}
	return st, nil
}

func ensureStudentIDFree(ctx context.Context, r repository.CatalogReader, id int) error {
	_, err := r.GetStudent(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return storeFailure("get student", err)
}

func resolveMajor(ctx context.Context, r repository.CatalogReader, id int) (*model.Major, error) {
	m, err := r.GetMajor(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: major %d", ErrUnknownMajor, id)
	}
	if err != nil {
		return nil, storeFailure("get major", err)
	}
	return m, nil
}

func studentWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUniqueViolation):
		return fmt.Errorf("%w: %v", ErrDuplicateID, err)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrUnknownMajor, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return storeFailure(op, err)
}
