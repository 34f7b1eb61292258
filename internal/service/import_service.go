package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// ImportOptions tunes a single import.
type ImportOptions struct {
	SkipHeader  bool
	MaxExamples int
}

// ImportService loads students in bulk from CSV.
type ImportService struct {
	audit    *AuditService
	defaults ImportOptions
	log      zerolog.Logger
}

// NewImportService creates a new ImportService. defaults.MaxExamples is used
// whenever a call passes a non-positive limit.
func NewImportService(audit *AuditService, defaults ImportOptions, log zerolog.Logger) *ImportService {
	if defaults.MaxExamples <= 0 {
		defaults.MaxExamples = 5
	}
	return &ImportService{
		audit:    audit,
		defaults: defaults,
		log:      log.With().Str("component", "import_service").Logger(),
	}
}

// Defaults returns the configured options.
func (s *ImportService) Defaults() ImportOptions {
	return s.defaults
}

// Authorize reports whether actor may import, so callers can refuse before
// reading the upload.
func (s *ImportService) Authorize(actor *model.Identity) error {
	return s.audit.guard.Authorize(actor, OpImportCSV)
}

// Import reconciles each row of r against the catalog and inserts the accepted
// rows together with one audit entry. Rejected rows never stop the rest of the
// file; a store failure rolls back the whole import.
func (s *ImportService) Import(ctx context.Context, actor *model.Identity, r io.Reader, opts ImportOptions) (*model.ImportReport, error) {
	if opts.MaxExamples <= 0 {
		opts.MaxExamples = s.defaults.MaxExamples
	}

	var report *model.ImportReport
	err := s.audit.Mutate(ctx, actor, OpImportCSV, func(tx repository.Tx) (Note, error) {
		records, skipped, err := readRosterCSV(r, opts.SkipHeader)
		if err != nil {
			return Note{}, invalid("csv_file", err.Error())
		}

		rec := newReconciler(tx, opts.MaxExamples)
		for _, record := range records {
			if err := rec.reconcile(ctx, record); err != nil {
				return Note{}, err
			}
		}

		added, err := tx.CreateStudents(ctx, rec.staged)
		if err != nil {
			return Note{}, storeFailure("insert students", err)
		}

		report = &model.ImportReport{
			Added:         int(added),
			RejectedCount: rec.rejectedCount,
			Skipped:       skipped,
			Rejected:      rec.examples,
		}
		return Note{ActionImportCSV, fmt.Sprintf("Imported %d students. Failed %d rows.", report.Added, report.RejectedCount)}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("actor_id", actor.ID).
		Int("added", report.Added).
		Int("rejected", report.RejectedCount).
		Int("skipped", report.Skipped).
		Msg("CSV import committed")
	return report, nil
}

// reconciler checks rows against the catalog plus the rows staged so far.
type reconciler struct {
	tx          repository.CatalogReader
	maxExamples int

	majors        map[string]*model.Major
	stagedIDs     map[int]bool
	staged        []model.Student
	examples      []model.RejectedRow
	rejectedCount int
}

func newReconciler(tx repository.CatalogReader, maxExamples int) *reconciler {
	return &reconciler{
		tx:          tx,
		maxExamples: maxExamples,
		majors:      make(map[string]*model.Major),
		stagedIDs:   make(map[int]bool),
		examples:    []model.RejectedRow{},
	}
}

func (c *reconciler) reject(row model.RejectedRow) {
	c.rejectedCount++
	if len(c.examples) < c.maxExamples {
		c.examples = append(c.examples, row)
	}
}

// reconcile stages or rejects one record. Only store failures are returned.
func (c *reconciler) reconcile(ctx context.Context, record csvRecord) error {
	row, rejected := parseRosterRow(record)
	if rejected != nil {
		c.reject(*rejected)
		return nil
	}

	major, err := c.lookupMajor(ctx, row.MajorName)
	if err != nil {
		return err
	}
	if major == nil {
		c.reject(model.RejectedRow{
			Line:    record.Line,
			Raw:     record.raw(),
			Reason:  model.RejectUnknownMajor,
			Field:   "major_name",
			Message: fmt.Sprintf("major %q does not exist", row.MajorName),
		})
		return nil
	}

	taken, err := c.idTaken(ctx, row.ID)
	if err != nil {
		return err
	}
	if taken {
		c.reject(model.RejectedRow{
			Line:    record.Line,
			Raw:     record.raw(),
			Reason:  model.RejectDuplicateID,
			Field:   "student_id",
			Message: fmt.Sprintf("student id %d already exists", row.ID),
		})
		return nil
	}

	c.stagedIDs[row.ID] = true
	c.staged = append(c.staged, model.Student{ID: row.ID, Name: row.Name, MajorID: major.ID})
	return nil
}

// lookupMajor returns nil without error when no major has exactly that name.
func (c *reconciler) lookupMajor(ctx context.Context, name string) (*model.Major, error) {
	if m, ok := c.majors[name]; ok {
		return m, nil
	}
	m, err := c.tx.GetMajorByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		m, err = nil, nil
	}
	if err != nil {
		return nil, storeFailure("get major by name", err)
	}
	c.majors[name] = m
	return m, nil
}

func (c *reconciler) idTaken(ctx context.Context, id int) (bool, error) {
	if c.stagedIDs[id] {
		return true, nil
	}
	_, err := c.tx.GetStudent(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		return false, nil
	}
	return false, storeFailure("get student", err)
}
