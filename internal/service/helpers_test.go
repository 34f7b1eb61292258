package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

type fixture struct {
	ctx   context.Context
	store *repository.MemoryStore
	guard *Guard
	audit *AuditService

	majors    *MajorService
	students  *StudentService
	importer  *ImportService
	exporter  *ExportService
	dashboard *DashboardService

	admin *model.Identity
	guest *model.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, repository.NewMemoryStore(), nil)
}

// newFixtureWithStore wires services over store. mem must be the MemoryStore
// backing store (or store itself).
func newFixtureWithStore(t *testing.T, mem *repository.MemoryStore, store repository.Store) *fixture {
	t.Helper()
	if store == nil {
		store = mem
	}
	log := zerolog.Nop()
	guard := NewGuard()
	audit := NewAuditService(store, guard, nil, log)

	f := &fixture{
		ctx:       context.Background(),
		store:     mem,
		guard:     guard,
		audit:     audit,
		majors:    NewMajorService(store, guard, audit, log),
		students:  NewStudentService(store, guard, audit, log),
		importer:  NewImportService(audit, ImportOptions{MaxExamples: 5}, log),
		exporter:  NewExportService(audit),
		dashboard: NewDashboardService(store, guard),
		admin:     &model.Identity{Username: "admin", Role: model.RoleAdmin},
		guest:     &model.Identity{Username: "guest", Role: model.RoleGuest},
	}
	require.NoError(t, mem.CreateIdentity(f.ctx, f.admin))
	require.NoError(t, mem.CreateIdentity(f.ctx, f.guest))
	return f
}

func (f *fixture) major(t *testing.T, name string) *model.Major {
	t.Helper()
	m, err := f.majors.Create(f.ctx, f.admin, name)
	require.NoError(t, err)
	return m
}

func (f *fixture) student(t *testing.T, id int, name string, majorID int) *model.Student {
	t.Helper()
	st, err := f.students.Create(f.ctx, f.admin, model.StudentRequest{ID: id, Name: name, MajorID: majorID})
	require.NoError(t, err)
	return st
}

func (f *fixture) entries(t *testing.T) []model.AuditEntry {
	t.Helper()
	entries, err := f.store.ListAuditEntries(f.ctx)
	require.NoError(t, err)
	return entries
}

func (f *fixture) allStudents(t *testing.T) []model.Student {
	t.Helper()
	students, err := f.store.ListStudents(f.ctx, model.StudentFilter{})
	require.NoError(t, err)
	return students
}

var errDiskFull = errors.New("disk full")

// faultyStore wraps a MemoryStore and injects failures into selected Tx calls.
type faultyStore struct {
	*repository.MemoryStore
	failCreateStudents bool
	failAppendAudit    bool
}

func (s *faultyStore) RunInTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.RunInTx(ctx, func(tx repository.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	repository.Tx
	store *faultyStore
}

func (t *faultyTx) CreateStudents(ctx context.Context, students []model.Student) (int64, error) {
	if t.store.failCreateStudents {
		return 0, errDiskFull
	}
	return t.Tx.CreateStudents(ctx, students)
}

func (t *faultyTx) AppendAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	if t.store.failAppendAudit {
		return errDiskFull
	}
	return t.Tx.AppendAuditEntry(ctx, e)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:  "test-secret",
		JWTExpiry:  time.Hour,
		BcryptCost: 4,
		CaptchaTTL: time.Minute,
	}
}
