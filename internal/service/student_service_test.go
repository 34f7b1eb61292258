package service

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/roster-backend/internal/model"
)

func TestCreateStudentVisibleInListing(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")

	st, err := f.students.Create(f.ctx, f.admin, model.StudentRequest{ID: 42, Name: " Alice ", MajorID: cs.ID, Notes: "transfer"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", st.Name)
	assert.Equal(t, "CS", st.MajorName)

	list, err := f.students.List(f.ctx, nil, model.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 42, list[0].ID)
	assert.Equal(t, "CS", list[0].MajorName)
	assert.Equal(t, "transfer", list[0].Notes)

	assert.Equal(t, "Added student: Alice (ID: 42)", f.entries(t)[0].Details)
}

func TestCreateStudentErrors(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")
	f.student(t, 1, "Alice", cs.ID)
	before := len(f.entries(t))

	tests := []struct {
		name string
		req  model.StudentRequest
		want error
	}{
		{"duplicate id", model.StudentRequest{ID: 1, Name: "Bob", MajorID: cs.ID}, ErrDuplicateID},
		{"unknown major", model.StudentRequest{ID: 2, Name: "Bob", MajorID: 77}, ErrUnknownMajor},
		{"zero id", model.StudentRequest{ID: 0, Name: "Bob", MajorID: cs.ID}, ErrValidation},
		{"negative id", model.StudentRequest{ID: -3, Name: "Bob", MajorID: cs.ID}, ErrValidation},
		{"id above int4", model.StudentRequest{ID: math.MaxInt32 + 1, Name: "Bob", MajorID: cs.ID}, ErrValidation},
		{"major id above int4", model.StudentRequest{ID: 2, Name: "Bob", MajorID: math.MaxInt32 + 1}, ErrValidation},
		{"blank name", model.StudentRequest{ID: 2, Name: "  ", MajorID: cs.ID}, ErrValidation},
		{"long notes", model.StudentRequest{ID: 2, Name: "Bob", MajorID: cs.ID, Notes: string(make([]rune, 2001))}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.students.Create(f.ctx, f.admin, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Len(t, f.allStudents(t), 1)
	assert.Len(t, f.entries(t), before)
}

func TestUpdateStudent(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")
	math := f.major(t, "Math")
	f.student(t, 1, "Alice", cs.ID)
	f.student(t, 2, "Bob", cs.ID)

	st, err := f.students.Update(f.ctx, f.admin, 1, model.StudentRequest{ID: 10, Name: "Alicia", MajorID: math.ID, Notes: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, 10, st.ID)
	assert.Equal(t, "Math", st.MajorName)
	assert.Equal(t, "Edited student: Alice (ID: 1)", f.entries(t)[0].Details)

	_, err = f.students.Get(f.ctx, nil, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := f.students.Get(f.ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, "renamed", got.Notes)

	_, err = f.students.Update(f.ctx, f.admin, 10, model.StudentRequest{ID: 2, Name: "Alicia", MajorID: math.ID})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = f.students.Update(f.ctx, f.admin, 10, model.StudentRequest{ID: 10, Name: "Alicia", MajorID: 99})
	assert.ErrorIs(t, err, ErrUnknownMajor)

	_, err = f.students.Update(f.ctx, f.admin, 555, model.StudentRequest{ID: 555, Name: "Ghost", MajorID: cs.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	// keeping the same id is not a collision with itself
	_, err = f.students.Update(f.ctx, f.admin, 10, model.StudentRequest{ID: 10, Name: "Alicia K.", MajorID: cs.ID})
	assert.NoError(t, err)
}

func TestGuestCannotDeleteStudent(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")
	f.student(t, 1, "Alice", cs.ID)
	before := f.entries(t)

	err := f.students.Delete(f.ctx, f.guest, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Len(t, f.allStudents(t), 1)
	assert.Equal(t, before, f.entries(t))
}

func TestDeleteStudent(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")
	f.student(t, 7, "Alice", cs.ID)

	require.NoError(t, f.students.Delete(f.ctx, f.admin, 7))
	assert.Empty(t, f.allStudents(t))
	assert.Equal(t, "Deleted student: Alice (ID: 7)", f.entries(t)[0].Details)

	assert.ErrorIs(t, f.students.Delete(f.ctx, f.admin, 7), ErrNotFound)
}

func TestListStudentsFilterAndAnonymous(t *testing.T) {
	f := newFixture(t)
	cs := f.major(t, "CS")
	bio := f.major(t, "Biology")
	f.student(t, 120, "Alice", cs.ID)
	f.student(t, 7, "Bob", bio.ID)
	f.student(t, 33, "alina", bio.ID)
	before := len(f.entries(t))

	list, err := f.students.List(f.ctx, nil, model.StudentFilter{Query: "ALI"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 33, list[0].ID)
	assert.Equal(t, 120, list[1].ID)

	list, err = f.students.List(f.ctx, nil, model.StudentFilter{Query: "12"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].Name)

	list, err = f.students.List(f.ctx, nil, model.StudentFilter{Query: "ali", MajorID: &bio.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 33, list[0].ID)

	missing := 404
	_, err = f.students.List(f.ctx, nil, model.StudentFilter{MajorID: &missing})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, f.entries(t), before)
}

func TestEveryMutationAppendsOneEntry(t *testing.T) {
	f := newFixture(t)

	steps := []func() error{
		func() error { _, err := f.majors.Create(f.ctx, f.admin, "CS"); return err },
		func() error { _, err := f.majors.Create(f.ctx, f.admin, "Math"); return err },
		func() error { _, err := f.majors.Rename(f.ctx, f.admin, 2, "Mathematics"); return err },
		func() error {
			_, err := f.students.Create(f.ctx, f.admin, model.StudentRequest{ID: 1, Name: "Alice", MajorID: 1})
			return err
		},
		func() error {
			_, err := f.students.Update(f.ctx, f.admin, 1, model.StudentRequest{ID: 2, Name: "Alice", MajorID: 2})
			return err
		},
		func() error { return f.students.Delete(f.ctx, f.admin, 2) },
		func() error { return f.majors.Delete(f.ctx, f.admin, 1) },
	}
	for i, step := range steps {
		require.NoError(t, step(), fmt.Sprintf("step %d", i))
		entries := f.entries(t)
		require.Len(t, entries, i+1)
		assert.Equal(t, f.admin.ID, entries[0].ActorID)
		assert.Equal(t, "admin", entries[0].ActorUsername)
		if i > 0 {
			assert.False(t, entries[0].CreatedAt.Before(entries[1].CreatedAt))
		}
	}
}
