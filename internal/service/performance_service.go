package service

import (
	"context"
	"strings"
	"time"

	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/performance"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// PerformanceService loads the event log and feedback and hands them to the pure
// aggregator. Nothing it computes is stored.
type PerformanceService struct {
	repo    repository.Repository
	timeout time.Duration
}

// NewPerformanceService constructs the service.
func NewPerformanceService(repo repository.Repository, timeout time.Duration) *PerformanceService {
	if timeout <= 0 {
		timeout = defaultRepositoryTimeout
	}
	return &PerformanceService{repo: repo, timeout: timeout}
}

// ComputePerformance returns metrics for a staff member or category over window.
func (s *PerformanceService) ComputePerformance(ctx context.Context, scope domain.PerformanceScope, id string, window domain.Window) (*domain.PerformanceSnapshot, error) {
	id = strings.TrimSpace(id)
	if !scope.IsValid() {
		return nil, apperrors.NewValidationError("scope must be staff or category", map[string]any{"scope": scope})
	}
	if id == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return nil, apperrors.NewValidationError("window start must precede its end", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	log, err := s.repo.ListEvents(ctx, repository.EventFilter{Until: window.To})
	if err != nil {
		return nil, mapRepoError(err, "events", nil)
	}
	feedback, err := s.repo.ListFeedback(ctx, window.To)
	if err != nil {
		return nil, mapRepoError(err, "feedback", nil)
	}
	snapshot := performance.Compute(scope, id, window, log, feedback)
	return &snapshot, nil
}
