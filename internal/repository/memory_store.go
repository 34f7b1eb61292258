package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stemsi/roster-backend/internal/model"
)

// MemoryStore is an in-process Store and IdentityStore. It mirrors the
// constraint behaviour of the Postgres schema and is used by tests and by
// STORE_DRIVER=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memState struct {
	majors     map[int]model.Major
	students   map[int]model.Student
	audit      []model.AuditEntry
	identities map[int]model.Identity

	nextMajorID    int
	nextAuditID    int64
	nextIdentityID int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			majors:         make(map[int]model.Major),
			students:       make(map[int]model.Student),
			identities:     make(map[int]model.Identity),
			nextMajorID:    1,
			nextAuditID:    1,
			nextIdentityID: 1,
		},
		now: time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (st *memState) clone() *memState {
	c := &memState{
		majors:         make(map[int]model.Major, len(st.majors)),
		students:       make(map[int]model.Student, len(st.students)),
		audit:          append([]model.AuditEntry(nil), st.audit...),
		identities:     make(map[int]model.Identity, len(st.identities)),
		nextMajorID:    st.nextMajorID,
		nextAuditID:    st.nextAuditID,
		nextIdentityID: st.nextIdentityID,
	}
	for k, v := range st.majors {
		c.majors[k] = v
	}
	for k, v := range st.students {
		c.students[k] = v
	}
	for k, v := range st.identities {
		c.identities[k] = v
	}
	return c
}

// RunInTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. Transactions are serialized.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{st: s.state.clone(), now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.st
	return nil
}

func (s *MemoryStore) read() *memTx {
	return &memTx{st: s.state, now: s.now}
}

func (s *MemoryStore) GetMajor(ctx context.Context, id int) (*model.Major, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetMajor(ctx, id)
}

func (s *MemoryStore) GetMajorByName(ctx context.Context, name string) (*model.Major, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetMajorByName(ctx, name)
}

func (s *MemoryStore) ListMajors(ctx context.Context) ([]model.Major, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListMajors(ctx)
}

func (s *MemoryStore) CountStudentsByMajor(ctx context.Context, majorID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().CountStudentsByMajor(ctx, majorID)
}

func (s *MemoryStore) MajorStudentCounts(ctx context.Context) ([]model.MajorCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().MajorStudentCounts(ctx)
}

func (s *MemoryStore) GetStudent(ctx context.Context, id int) (*model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetStudent(ctx, id)
}

func (s *MemoryStore) ListStudents(ctx context.Context, filter model.StudentFilter) ([]model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListStudents(ctx, filter)
}

func (s *MemoryStore) ListAuditEntries(ctx context.Context) ([]model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListAuditEntries(ctx)
}

func (s *MemoryStore) CreateIdentity(_ context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.identities {
		if existing.Username == identity.Username {
			return fmt.Errorf("%w: identities_username_key", ErrUniqueViolation)
		}
	}
	identity.ID = s.state.nextIdentityID
	identity.CreatedAt = s.now()
	s.state.nextIdentityID++
	s.state.identities[identity.ID] = *identity
	return nil
}

func (s *MemoryStore) GetIdentityByID(_ context.Context, id int) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &i, nil
}

func (s *MemoryStore) GetIdentityByUsername(_ context.Context, username string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.state.identities {
		if i.Username == username {
			return &i, nil
		}
	}
	return nil, ErrNotFound
}

// memTx operates on one memState. Callers hold the store lock.
type memTx struct {
	st  *memState
	now func() time.Time
}

func (t *memTx) GetMajor(_ context.Context, id int) (*model.Major, error) {
	m, ok := t.st.majors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (t *memTx) GetMajorByName(_ context.Context, name string) (*model.Major, error) {
	for _, m := range t.st.majors {
		if m.Name == name {
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListMajors(_ context.Context) ([]model.Major, error) {
	majors := make([]model.Major, 0, len(t.st.majors))
	for _, m := range t.st.majors {
		majors = append(majors, m)
	}
	sort.Slice(majors, func(i, j int) bool { return majors[i].Name < majors[j].Name })
	return majors, nil
}

func (t *memTx) CountStudentsByMajor(_ context.Context, majorID int) (int, error) {
	n := 0
	for _, s := range t.st.students {
		if s.MajorID == majorID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) MajorStudentCounts(ctx context.Context) ([]model.MajorCount, error) {
	majors, _ := t.ListMajors(ctx)
	counts := make([]model.MajorCount, 0, len(majors))
	for _, m := range majors {
		n, _ := t.CountStudentsByMajor(ctx, m.ID)
		counts = append(counts, model.MajorCount{MajorID: m.ID, Label: m.Name, Count: n})
	}
	return counts, nil
}

func (t *memTx) withMajorName(s model.Student) model.Student {
	s.MajorName = t.st.majors[s.MajorID].Name
	return s
}

func (t *memTx) GetStudent(_ context.Context, id int) (*model.Student, error) {
	s, ok := t.st.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = t.withMajorName(s)
	return &s, nil
}

func (t *memTx) ListStudents(_ context.Context, filter model.StudentFilter) ([]model.Student, error) {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	students := []model.Student{}
	for _, s := range t.st.students {
		if filter.MajorID != nil && s.MajorID != *filter.MajorID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strconv.Itoa(s.ID), q) {
			continue
		}
		students = append(students, t.withMajorName(s))
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (t *memTx) ListAuditEntries(_ context.Context) ([]model.AuditEntry, error) {
	entries := make([]model.AuditEntry, len(t.st.audit))
	for i, e := range t.st.audit {
		if actor, ok := t.st.identities[e.ActorID]; ok {
			e.ActorUsername = actor.Username
		}
		entries[len(entries)-1-i] = e
	}
	return entries, nil
}

func (t *memTx) CreateMajor(_ context.Context, m *model.Major) error {
	for _, existing := range t.st.majors {
		if existing.Name == m.Name {
			return fmt.Errorf("%w: majors_name_key", ErrUniqueViolation)
		}
	}
	now := t.now()
	m.ID = t.st.nextMajorID
	m.CreatedAt, m.UpdatedAt = now, now
	t.st.nextMajorID++
	t.st.majors[m.ID] = *m
	return nil
}

func (t *memTx) UpdateMajor(_ context.Context, m *model.Major) error {
	current, ok := t.st.majors[m.ID]
	if !ok {
		return ErrNotFound
	}
	for id, existing := range t.st.majors {
		if id != m.ID && existing.Name == m.Name {
			return fmt.Errorf("%w: majors_name_key", ErrUniqueViolation)
		}
	}
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = t.now()
	t.st.majors[m.ID] = *m
	return nil
}

func (t *memTx) DeleteMajor(ctx context.Context, id int) error {
	if _, ok := t.st.majors[id]; !ok {
		return ErrNotFound
	}
	if n, _ := t.CountStudentsByMajor(ctx, id); n > 0 {
		return fmt.Errorf("%w: students_major_id_fkey", ErrForeignKeyViolation)
	}
	delete(t.st.majors, id)
	return nil
}

func (t *memTx) insertStudent(s *model.Student) error {
	if _, ok := t.st.students[s.ID]; ok {
		return fmt.Errorf("%w: students_pkey", ErrUniqueViolation)
	}
	if _, ok := t.st.majors[s.MajorID]; !ok {
		return fmt.Errorf("%w: students_major_id_fkey", ErrForeignKeyViolation)
	}
	now := t.now()
	s.CreatedAt, s.UpdatedAt = now, now
	stored := *s
	stored.MajorName = ""
	t.st.students[s.ID] = stored
	return nil
}

func (t *memTx) CreateStudent(_ context.Context, s *model.Student) error {
	return t.insertStudent(s)
}

func (t *memTx) CreateStudents(_ context.Context, students []model.Student) (int64, error) {
	for i := range students {
		if err := t.insertStudent(&students[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(students)), nil
}

func (t *memTx) UpdateStudent(_ context.Context, currentID int, s *model.Student) error {
	current, ok := t.st.students[currentID]
	if !ok {
		return ErrNotFound
	}
	if s.ID != currentID {
		if _, taken := t.st.students[s.ID]; taken {
			return fmt.Errorf("%w: students_pkey", ErrUniqueViolation)
		}
	}
	if _, ok := t.st.majors[s.MajorID]; !ok {
		return fmt.Errorf("%w: students_major_id_fkey", ErrForeignKeyViolation)
	}
	s.CreatedAt = current.CreatedAt
	s.UpdatedAt = t.now()
	stored := *s
	stored.MajorName = ""
	delete(t.st.students, currentID)
	t.st.students[s.ID] = stored
	return nil
}

func (t *memTx) DeleteStudent(_ context.Context, id int) error {
	if _, ok := t.st.students[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.students, id)
	return nil
}

func (t *memTx) AppendAuditEntry(_ context.Context, e *model.AuditEntry) error {
	ts := t.now()
	if n := len(t.st.audit); n > 0 && ts.Before(t.st.audit[n-1].CreatedAt) {
		ts = t.st.audit[n-1].CreatedAt
	}
	e.ID = t.st.nextAuditID
	e.CreatedAt = ts
	t.st.nextAuditID++
	stored := *e
	stored.ActorUsername = ""
	t.st.audit = append(t.st.audit, stored)
	return nil
}
