package repository

import (
	"context"
	"errors"

	"github.com/stemsi/roster-backend/internal/model"
)

// Store-level errors. Services translate them into domain errors.
var (
	ErrNotFound            = errors.New("record not found")
	ErrUniqueViolation     = errors.New("unique constraint violated")
	ErrForeignKeyViolation = errors.New("foreign key constraint violated")
)

// CatalogReader is the read side of the catalog and audit trail.
type CatalogReader interface {
	GetMajor(ctx context.Context, id int) (*model.Major, error)
	GetMajorByName(ctx context.Context, name string) (*model.Major, error)
	ListMajors(ctx context.Context) ([]model.Major, error)
	CountStudentsByMajor(ctx context.Context, majorID int) (int, error)
	MajorStudentCounts(ctx context.Context) ([]model.MajorCount, error)

	GetStudent(ctx context.Context, id int) (*model.Student, error)
	ListStudents(ctx context.Context, filter model.StudentFilter) ([]model.Student, error)

	ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error)
}

// Tx is a unit of work. Everything done through one Tx commits or rolls back together.
type Tx interface {
	CatalogReader

	CreateMajor(ctx context.Context, m *model.Major) error
	UpdateMajor(ctx context.Context, m *model.Major) error
	DeleteMajor(ctx context.Context, id int) error

	CreateStudent(ctx context.Context, s *model.Student) error
	CreateStudents(ctx context.Context, students []model.Student) (int64, error)
	UpdateStudent(ctx context.Context, currentID int, s *model.Student) error
	DeleteStudent(ctx context.Context, id int) error

	AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error
}

// Store owns the catalog. RunInTx commits when fn returns nil and rolls back otherwise;
// fn must only touch the store through the Tx it is given.
type Store interface {
	CatalogReader
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// IdentityStore holds sign-in accounts.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentityByID(ctx context.Context, id int) (*model.Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*model.Identity, error)
}
