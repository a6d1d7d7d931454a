package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// StaffService manages staff profiles and duty status.
type StaffService struct {
	repo    repository.Repository
	clock   clock.Clock
	logger  *zap.Logger
	timeout time.Duration
}

// StaffDependencies bundles collaborators for the staff service.
type StaffDependencies struct {
	Repo        repository.Repository
	Clock       clock.Clock
	Logger      *zap.Logger
	RepoTimeout time.Duration
}

// StaffInput describes a staff upsert. A nil OnDuty keeps the stored value.
type StaffInput struct {
	ID              string
	GuildID         string
	Specializations []string
	OnDuty          *bool
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	GuildID string
	OnDuty  *bool
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	svc := &StaffService{repo: deps.Repo, clock: deps.Clock, logger: deps.Logger, timeout: deps.RepoTimeout}
	if svc.timeout <= 0 {
		svc.timeout = defaultRepositoryTimeout
	}
	if svc.clock == nil {
		svc.clock = clock.System{}
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// UpsertStaff creates or updates a staff profile. Workload counters are never
// written here.
func (s *StaffService) UpsertStaff(ctx context.Context, input StaffInput) (*domain.StaffMember, error) {
	input.ID = strings.TrimSpace(input.ID)
	input.GuildID = strings.TrimSpace(input.GuildID)
	if input.ID == "" {
		return nil, apperrors.NewValidationError("staff id required", nil)
	}
	if input.GuildID == "" {
		return nil, apperrors.NewValidationError("guild_id required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.clock.Now()
	staff, err := s.repo.LoadStaff(ctx, input.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		staff = &domain.StaffMember{ID: input.ID}
	case err != nil:
		return nil, mapRepoError(err, "staff", input.ID)
	}

	staff.GuildID = input.GuildID
	staff.Specializations = normalizeTags(input.Specializations)
	if input.OnDuty != nil {
		setDuty(staff, *input.OnDuty, now)
	}
	staff.UpdatedAt = now
	if err := s.repo.SaveStaff(ctx, staff); err != nil {
		return nil, mapRepoError(err, "staff", input.ID)
	}
	return staff, nil
}

// SetDuty toggles whether the staff member can take new tickets. Existing
// assignments are kept.
func (s *StaffService) SetDuty(ctx context.Context, staffID string, onDuty bool) (*domain.StaffMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	staff, err := s.repo.LoadStaff(ctx, staffID)
	if err != nil {
		return nil, mapRepoError(err, "staff", staffID)
	}
	now := s.clock.Now()
	setDuty(staff, onDuty, now)
	staff.UpdatedAt = now
	if err := s.repo.SaveStaff(ctx, staff); err != nil {
		return nil, mapRepoError(err, "staff", staffID)
	}
	s.logger.Info("staff duty changed", zap.String("staff_id", staffID), zap.Bool("on_duty", onDuty))
	return staff, nil
}

// GetStaff returns a staff profile.
func (s *StaffService) GetStaff(ctx context.Context, staffID string) (*domain.StaffMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	staff, err := s.repo.LoadStaff(ctx, staffID)
	if err != nil {
		return nil, mapRepoError(err, "staff", staffID)
	}
	return staff, nil
}

// ListStaff returns staff matching the filters ordered by id.
func (s *StaffService) ListStaff(ctx context.Context, filters StaffListFilters) ([]domain.StaffMember, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repo.ListStaff(ctx, repository.StaffFilter{GuildID: filters.GuildID, OnDuty: filters.OnDuty})
	if err != nil {
		return nil, mapRepoError(err, "staff", nil)
	}
	return list, nil
}

func setDuty(staff *domain.StaffMember, onDuty bool, now time.Time) {
	if staff.OnDuty == onDuty {
		return
	}
	staff.OnDuty = onDuty
	if onDuty {
		since := now
		staff.OnDutySince = &since
	} else {
		staff.OnDutySince = nil
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
