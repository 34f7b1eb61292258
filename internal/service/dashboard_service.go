package service

import (
	"context"

	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
)

// DashboardService aggregates the roster for the dashboard chart.
type DashboardService struct {
	store repository.CatalogReader
	guard *Guard
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store repository.CatalogReader, guard *Guard) *DashboardService {
	return &DashboardService{store: store, guard: guard}
}

// MajorCounts returns every major with its student count, ordered by name.
// Majors without students are included with a zero count.
func (s *DashboardService) MajorCounts(ctx context.Context, actor *model.Identity) ([]model.MajorCount, error) {
	if err := s.guard.Authorize(actor, OpDashboard); err != nil {
		return nil, err
	}
	counts, err := s.store.MajorStudentCounts(ctx)
	if err != nil {
		return nil, storeFailure("major student counts", err)
	}
	return counts, nil
}
