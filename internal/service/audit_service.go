package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// Audit action labels.
const (
	ActionCreateMajor   = "Create Major"
	ActionEditMajor     = "Edit Major"
	ActionDeleteMajor   = "Delete Major"
	ActionCreateStudent = "Create Student"
	ActionEditStudent   = "Edit Student"
	ActionDeleteStudent = "Delete Student"
	ActionImportCSV     = "CSV Import"
	ActionExportCSV     = "Export CSV"
)

// Note is what a mutation asks the recorder to write once it has succeeded.
type Note struct {
	Action  string
	Details string
}

// AuditBus fans committed entries out to live subscribers.
type AuditBus interface {
	Publish(ctx context.Context, entry model.AuditEntry) error
	Subscribe(ctx context.Context) (<-chan model.AuditEntry, error)
}

// AuditService records audit entries and runs guarded, audited mutations.
type AuditService struct {
	store repository.Store
	guard *Guard
	bus   AuditBus
	log   zerolog.Logger
}

// NewAuditService creates a new AuditService. bus may be nil.
func NewAuditService(store repository.Store, guard *Guard, bus AuditBus, log zerolog.Logger) *AuditService {
	return &AuditService{
		store: store,
		guard: guard,
		bus:   bus,
		log:   log.With().Str("component", "audit_service").Logger(),
	}
}

// Record appends one entry inside the caller's transaction.
func (s *AuditService) Record(ctx context.Context, tx repository.Tx, actorID int, note Note) (*model.AuditEntry, error) {
	entry := &model.AuditEntry{
		ActorID: actorID,
		Action:  note.Action,
		Details: note.Details,
	}
	if err := tx.AppendAuditEntry(ctx, entry); err != nil {
		return nil, storeFailure("append audit entry", err)
	}
	return entry, nil
}

// Mutate authorizes op, runs fn in a transaction and records fn's note in the
// same transaction. Nothing is written when authorization or fn fails.
func (s *AuditService) Mutate(ctx context.Context, actor *model.Identity, op Operation, fn func(tx repository.Tx) (Note, error)) error {
	if err := s.guard.Authorize(actor, op); err != nil {
		return err
	}

	var entry *model.AuditEntry
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		note, err := fn(tx)
		if err != nil {
			return err
		}
		entry, err = s.Record(ctx, tx, actor.ID, note)
		return err
	})
	if err = classify(op.Name, err); err != nil {
		if isStoreFailure(err) {
			s.log.Error().Err(err).Int("actor_id", actor.ID).Str("op", op.Name).Msg("Mutation failed")
		}
		return err
	}

	entry.ActorUsername = actor.Username
	s.log.Info().
		Int("actor_id", actor.ID).
		Str("op", op.Name).
		Str("action", entry.Action).
		Msg(entry.Details)
	s.announce(ctx, *entry)
	return nil
}

func (s *AuditService) announce(ctx context.Context, entry model.AuditEntry) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn().Err(err).Int64("entry_id", entry.ID).Msg("Audit publish failed")
	}
}

// List returns every entry, most recent first. Administrators only.
func (s *AuditService) List(ctx context.Context, actor *model.Identity) ([]model.AuditEntry, error) {
	if err := s.guard.Authorize(actor, OpViewAuditLog); err != nil {
		return nil, err
	}
	entries, err := s.store.ListAuditEntries(ctx)
	if err != nil {
		return nil, storeFailure("list audit entries", err)
	}
	return entries, nil
}

// Stream subscribes an administrator to entries committed from now on.
// The channel closes when ctx is done.
func (s *AuditService) Stream(ctx context.Context, actor *model.Identity) (<-chan model.AuditEntry, error) {
	if err := s.guard.Authorize(actor, OpStreamAuditLog); err != nil {
		return nil, err
	}
	if s.bus == nil {
		return nil, fmt.Errorf("%w: live audit feed is not configured", ErrStore)
	}
	ch, err := s.bus.Subscribe(ctx)
	if err != nil {
		return nil, storeFailure("subscribe audit feed", err)
	}
	return ch, nil
}
