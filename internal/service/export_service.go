package service

import (
	"context"
	"fmt"
	"io"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// ExportService writes the roster as CSV.
type ExportService struct {
	audit *AuditService
}

// NewExportService creates a new ExportService.
func NewExportService(audit *AuditService) *ExportService {
	return &ExportService{audit: audit}
}

// Export records the export, commits, then writes the matching students to w
// in listing order. It returns the number of students written.
func (s *ExportService) Export(ctx context.Context, actor *model.Identity, filter model.StudentFilter, w io.Writer) (int, error) {
	var students []model.Student
	err := s.audit.Mutate(ctx, actor, OpExportCSV, func(tx repository.Tx) (Note, error) {
		var err error
		students, err = listStudents(ctx, tx, filter)
		if err != nil {
			return Note{}, err
		}
		return Note{ActionExportCSV, fmt.Sprintf("Exported %d students.", len(students))}, nil
	})
	if err != nil {
		return 0, err
	}

	if err := writeRosterCSV(w, students); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(students), nil
}
