package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// MajorService manages the set of majors.
type MajorService struct {
	store repository.Store
	guard *Guard
	audit *AuditService
	log   zerolog.Logger
}

// NewMajorService creates a new MajorService.
func NewMajorService(store repository.Store, guard *Guard, audit *AuditService, log zerolog.Logger) *MajorService {
	return &MajorService{
		store: store,
		guard: guard,
		audit: audit,
		log:   log.With().Str("component", "major_service").Logger(),
	}
}

// List returns every major ordered by name.
func (s *MajorService) List(ctx context.Context, actor *model.Identity) ([]model.Major, error) {
	if err := s.guard.Authorize(actor, OpListMajors); err != nil {
		return nil, err
	}
	majors, err := s.store.ListMajors(ctx)
	if err != nil {
		return nil, storeFailure("list majors", err)
	}
	return majors, nil
}

// Create adds a major. Names are unique and compared exactly.
func (s *MajorService) Create(ctx context.Context, actor *model.Identity, name string) (*model.Major, error) {
	var major *model.Major
	err := s.audit.Mutate(ctx, actor, OpCreateMajor, func(tx repository.Tx) (Note, error) {
		name, err := cleanName("name", name)
		if err != nil {
			return Note{}, err
		}
		if err := ensureNameFree(ctx, tx, name, 0); err != nil {
			return Note{}, err
		}

		m := &model.Major{Name: name}
		if err := tx.CreateMajor(ctx, m); err != nil {
			return Note{}, majorWriteErr("create major", err)
		}
		major = m
		return Note{ActionCreateMajor, fmt.Sprintf("Added major: %s", m.Name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return major, nil
}

// Rename changes a major's name. Renaming to the current name succeeds and is
// still recorded.
func (s *MajorService) Rename(ctx context.Context, actor *model.Identity, id int, newName string) (*model.Major, error) {
	var major *model.Major
	err := s.audit.Mutate(ctx, actor, OpRenameMajor, func(tx repository.Tx) (Note, error) {
		if err := checkID("id", id); err != nil {
			return Note{}, err
		}
		name, err := cleanName("name", newName)
		if err != nil {
			return Note{}, err
		}

		current, err := getMajor(ctx, tx, id)
		if err != nil {
			return Note{}, err
		}
		oldName := current.Name

		if name != oldName {
			if err := ensureNameFree(ctx, tx, name, id); err != nil {
				return Note{}, err
			}
			current.Name = name
			if err := tx.UpdateMajor(ctx, current); err != nil {
				return Note{}, majorWriteErr("rename major", err)
			}
		}
		major = current
		return Note{ActionEditMajor, fmt.Sprintf("Edited major '%s' to '%s'", oldName, name)}, nil
	})
	if err != nil {
		return nil, err
	}
	return major, nil
}

// Delete removes a major that no student references.
func (s *MajorService) Delete(ctx context.Context, actor *model.Identity, id int) error {
	return s.audit.Mutate(ctx, actor, OpDeleteMajor, func(tx repository.Tx) (Note, error) {
		if err := checkID("id", id); err != nil {
			return Note{}, err
		}
		current, err := getMajor(ctx, tx, id)
		if err != nil {
			return Note{}, err
		}

		n, err := tx.CountStudentsByMajor(ctx, id)
		if err != nil {
			return Note{}, storeFailure("count students", err)
		}
		if n > 0 {
			return Note{}, fmt.Errorf("%w: %q has %d students", ErrInUse, current.Name, n)
		}

		if err := tx.DeleteMajor(ctx, id); err != nil {
			return Note{}, majorWriteErr("delete major", err)
		}
		return Note{ActionDeleteMajor, fmt.Sprintf("Deleted major: %s", current.Name)}, nil
	})
}

func getMajor(ctx context.Context, r repository.CatalogReader, id int) (*model.Major, error) {
	m, err := r.GetMajor(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: major %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storeFailure("get major", err)
	}
	return m, nil
}

// ensureNameFree fails with ErrDuplicateName when a major other than selfID holds name.
func ensureNameFree(ctx context.Context, r repository.CatalogReader, name string, selfID int) error {
	existing, err := r.GetMajorByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return storeFailure("get major by name", err)
	case existing.ID != selfID:
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

func majorWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrUniqueViolation):
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrInUse, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return storeFailure(op, err)
}
