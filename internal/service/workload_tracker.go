package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/performance"
	"github.com/did4510/Nexon/internal/repository"
)

// WorkloadTracker ranks staff for assignment and repairs drifted workload counters.
// The counters themselves are only changed inside ticket transitions.
type WorkloadTracker struct {
	repo    repository.Repository
	logger  *zap.Logger
	timeout time.Duration
}

// WorkloadDependencies bundles tracker collaborators.
type WorkloadDependencies struct {
	Repo        repository.Repository
	Logger      *zap.Logger
	RepoTimeout time.Duration
}

// Candidate is a ranked staff suggestion.
type Candidate struct {
	Staff         domain.StaffMember
	Specialized   bool
	HasHistory    bool
	AvgResolution time.Duration
}

// WorkloadCorrection records one repaired counter.
type WorkloadCorrection = repository.WorkloadCorrection

// ReconcileReport summarizes a reconciliation pass.
type ReconcileReport struct {
	Checked     int
	Corrections []WorkloadCorrection
}

// NewWorkloadTracker constructs the tracker.
func NewWorkloadTracker(deps WorkloadDependencies) *WorkloadTracker {
	tracker := &WorkloadTracker{repo: deps.Repo, logger: deps.Logger, timeout: deps.RepoTimeout}
	if tracker.logger == nil {
		tracker.logger = zap.NewNop()
	}
	if tracker.timeout <= 0 {
		tracker.timeout = defaultRepositoryTimeout
	}
	return tracker
}

// RankCandidates orders staff by specialization match, then ascending workload,
// then ascending historical resolution time for the category (no history last),
// then staff id.
func RankCandidates(staff []domain.StaffMember, categoryID string, history map[string]time.Duration) []Candidate {
	candidates := make([]Candidate, 0, len(staff))
	for _, member := range staff {
		avg, ok := history[member.ID]
		candidates = append(candidates, Candidate{
			Staff:         member,
			Specialized:   member.HasSpecialization(categoryID),
			HasHistory:    ok,
			AvgResolution: avg,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateLess(candidates[i], candidates[j])
	})
	return candidates
}

func candidateLess(a, b Candidate) bool {
	if a.Specialized != b.Specialized {
		return a.Specialized
	}
	if a.Staff.ActiveCount != b.Staff.ActiveCount {
		return a.Staff.ActiveCount < b.Staff.ActiveCount
	}
	if a.HasHistory != b.HasHistory {
		return a.HasHistory
	}
	if a.AvgResolution != b.AvgResolution {
		return a.AvgResolution < b.AvgResolution
	}
	return a.Staff.ID < b.Staff.ID
}

// Suggest ranks the on-duty staff of a guild for a ticket in categoryID, leaving
// out the excluded identities.
func (w *WorkloadTracker) Suggest(ctx context.Context, guildID, categoryID string, exclude ...string) ([]Candidate, error) {
	onDuty := true
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	staff, err := w.repo.ListStaff(rctx, repository.StaffFilter{GuildID: guildID, OnDuty: &onDuty})
	if err != nil {
		return nil, mapRepoError(err, "staff", guildID)
	}
	if len(exclude) > 0 {
		skip := make(map[string]struct{}, len(exclude))
		for _, id := range exclude {
			skip[id] = struct{}{}
		}
		filtered := staff[:0]
		for _, member := range staff {
			if _, ok := skip[member.ID]; !ok {
				filtered = append(filtered, member)
			}
		}
		staff = filtered
	}
	if len(staff) == 0 {
		return nil, nil
	}

	log, err := w.repo.ListEvents(rctx, repository.EventFilter{
		CategoryID: categoryID,
		Kinds:      []domain.TicketEventKind{domain.EventResolved},
	})
	if err != nil {
		return nil, mapRepoError(err, "events", nil)
	}
	return RankCandidates(staff, categoryID, performance.AverageResolution(log, categoryID)), nil
}

// Reconcile recomputes every staff counter from the tickets currently in Claimed or
// Pending and writes back the ones that drifted, including counters that went
// negative.
func (w *WorkloadTracker) Reconcile(ctx context.Context) (ReconcileReport, error) {
	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	checked, corrections, err := w.repo.ReconcileWorkload(rctx)
	if err != nil {
		return ReconcileReport{}, mapRepoError(err, "staff", nil)
	}
	for _, fix := range corrections {
		w.logger.Warn("workload counter corrected",
			zap.String("staff_id", fix.StaffID),
			zap.Int("stored", fix.Stored),
			zap.Int("actual", fix.Actual))
	}
	return ReconcileReport{Checked: checked, Corrections: corrections}, nil
}
