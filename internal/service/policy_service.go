package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// PolicyService manages per-category SLA policies. Saved policies only reach
// tickets created afterwards; running tickets keep their snapshot.
type PolicyService struct {
	repo    repository.Repository
	clock   clock.Clock
	logger  *zap.Logger
	timeout time.Duration
}

// NewPolicyService constructs the service.
func NewPolicyService(repo repository.Repository, clk clock.Clock, logger *zap.Logger, timeout time.Duration) *PolicyService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRepositoryTimeout
	}
	return &PolicyService{repo: repo, clock: clk, logger: logger, timeout: timeout}
}

// PutPolicy validates and stores a policy.
func (s *PolicyService) PutPolicy(ctx context.Context, policy domain.SLAPolicy) (*domain.SLAPolicy, error) {
	policy.CategoryID = strings.TrimSpace(policy.CategoryID)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.UpdatedAt = s.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.SavePolicy(ctx, &policy); err != nil {
		return nil, mapRepoError(err, "policy", policy.CategoryID)
	}
	s.logger.Info("sla policy saved",
		zap.String("category_id", policy.CategoryID),
		zap.Duration("response", policy.ResponseDuration),
		zap.Duration("resolution", policy.ResolutionDuration),
		zap.Float64("warning_fraction", policy.WarningFraction))
	return &policy, nil
}

// GetPolicy returns the policy of a category.
func (s *PolicyService) GetPolicy(ctx context.Context, categoryID string) (*domain.SLAPolicy, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	policy, err := s.repo.LoadPolicy(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewPolicyNotFound(categoryID)
	}
	if err != nil {
		return nil, mapRepoError(err, "policy", categoryID)
	}
	return policy, nil
}
