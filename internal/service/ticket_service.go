package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/repository"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// TicketService coordinates ticket lifecycle workflows.
type TicketService struct {
	store    *TicketStore
	engine   *SLAEngine
	workload *WorkloadTracker
	logger   *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store    *TicketStore
	Engine   *SLAEngine
	Workload *WorkloadTracker
	Logger   *zap.Logger
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	GuildID    string
	CategoryID string
	CreatorID  string
	Anonymous  bool
	Priority   domain.TicketPriority
}

// CreatedTicket is the creation result. Warnings carries non-fatal conditions such
// as a missing SLA policy.
type CreatedTicket struct {
	Ticket   *domain.Ticket
	Warnings []error
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:    deps.Store,
		engine:   deps.Engine,
		workload: deps.Workload,
		logger:   logger,
	}
}

// CreateTicket opens a ticket and starts its response timer when the category has
// a policy. A missing policy is reported as a warning, not a failure.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreatedTicket, error) {
	input.GuildID = strings.TrimSpace(input.GuildID)
	input.CategoryID = strings.TrimSpace(input.CategoryID)
	input.CreatorID = strings.TrimSpace(input.CreatorID)
	switch {
	case input.GuildID == "":
		return nil, apperrors.NewValidationError("guild_id required", nil)
	case input.CategoryID == "":
		return nil, apperrors.NewValidationError("category_id required", nil)
	case input.CreatorID == "":
		return nil, apperrors.NewValidationError("creator_id required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}

	result := &CreatedTicket{}
	policy, err := s.loadPolicy(ctx, input.CategoryID)
	switch {
	case errors.Is(err, apperrors.ErrPolicyNotFound):
		s.logger.Warn("no SLA policy for category; ticket created without timers",
			zap.String("category_id", input.CategoryID))
		result.Warnings = append(result.Warnings, err)
	case err != nil:
		return nil, err
	}

	now := s.store.Now()
	ticket := &domain.Ticket{
		GuildID:    input.GuildID,
		CategoryID: input.CategoryID,
		CreatorID:  input.CreatorID,
		Anonymous:  input.Anonymous,
		State:      domain.TicketStateOpen,
		Priority:   input.Priority,
		CreatedAt:  now,
		OpenedAt:   now,
		UpdatedAt:  now,
	}
	if policy != nil {
		ticket.Policy = policy
		ticket.PolicyApplied = true
		ticket.Timers = []domain.SLATimer{s.engine.Start(policy, 0, domain.TimerKindResponse, now)}
	}

	c := &change{ticket: ticket, now: now, workload: map[string]int{}}
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	err = s.store.repo.InTx(rctx, func(tx repository.Tx) error {
		number, err := tx.NextTicketNumber(rctx, ticket.GuildID)
		if err != nil {
			return err
		}
		ticket.Number = number
		if err := tx.InsertTicket(rctx, ticket); err != nil {
			return err
		}
		c.events = nil
		c.emit(domain.TicketEvent{Kind: domain.EventCreated, ActorID: ticket.CreatorID})
		return tx.AppendEvent(rctx, &c.events[0])
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", nil)
	}

	s.store.publish(ctx, ticket, c.events)
	result.Ticket = ticket
	return result, nil
}

// GetTicket returns the current ticket state.
func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return s.store.load(ctx, ticketID)
}

// ListEvents returns the audit trail of a ticket in commit order.
func (s *TicketService) ListEvents(ctx context.Context, ticketID int64) ([]domain.TicketEvent, error) {
	if _, err := s.store.load(ctx, ticketID); err != nil {
		return nil, err
	}
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	list, err := s.store.repo.ListEvents(rctx, repository.EventFilter{TicketID: &ticketID})
	if err != nil {
		return nil, mapRepoError(err, "ticket", ticketID)
	}
	return list, nil
}

// Claim assigns an Open ticket to an on-duty staff member.
func (s *TicketService) Claim(ctx context.Context, ticketID int64, staffID string) (*domain.Ticket, error) {
	return s.claimAs(ctx, ticketID, staffID, staffID)
}

func (s *TicketService) claimAs(ctx context.Context, ticketID int64, staffID, actorID string) (*domain.Ticket, error) {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return nil, apperrors.NewValidationError("staff_id required", nil)
	}
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionClaim)
		if err != nil {
			return err
		}
		if err := s.requireOnDuty(ctx, t, staffID); err != nil {
			return err
		}

		responseTime := c.now.Sub(t.OpenedAt)
		if timer := t.ActiveTimer(domain.TimerKindResponse); timer != nil {
			responseTime = s.engine.Stop(timer, c.now)
		}
		t.State = next
		t.AssignedStaff = &staffID
		claimedAt := c.now
		t.ClaimedAt = &claimedAt
		if t.Policy != nil {
			t.Timers = append(t.Timers, s.engine.Start(t.Policy, t.ID, domain.TimerKindResolution, c.now))
		}

		c.adjustWorkload(staffID, 1)
		c.emit(domain.TicketEvent{
			Kind:      domain.EventClaimed,
			ActorID:   actorID,
			StaffID:   staffID,
			TimerKind: domain.TimerKindResponse,
			Elapsed:   responseTime,
		})
		return nil
	})
}

// Transfer moves a Claimed or Pending ticket to another on-duty staff member.
func (s *TicketService) Transfer(ctx context.Context, ticketID int64, newStaffID, actorID string) (*domain.Ticket, error) {
	newStaffID = strings.TrimSpace(newStaffID)
	if newStaffID == "" {
		return nil, apperrors.NewValidationError("staff_id required", nil)
	}
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionTransfer)
		if err != nil {
			return err
		}
		current := t.Assignee()
		if newStaffID == current {
			return apperrors.NewConflict("ticket already assigned to staff member",
				map[string]any{"ticket_id": t.ID, "staff_id": newStaffID})
		}
		if err := s.requireOnDuty(ctx, t, newStaffID); err != nil {
			return err
		}

		if t.State.CountsTowardWorkload() {
			c.adjustWorkload(current, -1)
			c.adjustWorkload(newStaffID, 1)
		}
		t.State = next
		t.AssignedStaff = &newStaffID
		c.emit(domain.TicketEvent{
			Kind:    domain.EventTransferred,
			ActorID: actorID,
			StaffID: newStaffID,
			Detail:  current,
		})
		return nil
	})
}

// SetPending parks a Claimed ticket. The resolution timer keeps running unless the
// policy pauses it.
func (s *TicketService) SetPending(ctx context.Context, ticketID int64, actorID string) (*domain.Ticket, error) {
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionSetPending)
		if err != nil {
			return err
		}
		if s.engine.PauseOnPending(t.Policy) {
			if timer := t.ActiveTimer(domain.TimerKindResolution); timer != nil {
				s.engine.Pause(timer, c.now)
			}
		}
		t.State = next
		c.emit(domain.TicketEvent{Kind: domain.EventPendingSet, ActorID: actorID, StaffID: t.Assignee()})
		return nil
	})
}

// Resume returns a Pending ticket to Claimed, resuming a paused timer.
func (s *TicketService) Resume(ctx context.Context, ticketID int64, actorID string) (*domain.Ticket, error) {
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionResume)
		if err != nil {
			return err
		}
		if timer := t.ActiveTimer(domain.TimerKindResolution); timer != nil {
			s.engine.Resume(timer, c.now)
		}
		t.State = next
		c.emit(domain.TicketEvent{Kind: domain.EventResumed, ActorID: actorID, StaffID: t.Assignee()})
		return nil
	})
}

// Resolve stops the resolution timer and releases the assignee's workload slot.
func (s *TicketService) Resolve(ctx context.Context, ticketID int64, actorID string) (*domain.Ticket, error) {
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionResolve)
		if err != nil {
			return err
		}

		var resolutionTime time.Duration
		if t.ClaimedAt != nil {
			resolutionTime = c.now.Sub(*t.ClaimedAt)
		}
		if timer := t.ActiveTimer(domain.TimerKindResolution); timer != nil {
			resolutionTime = s.engine.Stop(timer, c.now)
		}
		s.engine.StopAll(t, c.now)

		assignee := t.Assignee()
		if t.State.CountsTowardWorkload() {
			c.adjustWorkload(assignee, -1)
		}
		t.State = next
		c.emit(domain.TicketEvent{
			Kind:      domain.EventResolved,
			ActorID:   actorID,
			StaffID:   assignee,
			TimerKind: domain.TimerKindResolution,
			Elapsed:   resolutionTime,
		})
		return nil
	})
}

// Close finalizes a Resolved ticket and freezes its transcript.
func (s *TicketService) Close(ctx context.Context, ticketID int64, actorID, reason string) (*domain.Ticket, error) {
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionClose)
		if err != nil {
			return err
		}
		s.engine.StopAll(t, c.now)

		assignee := t.Assignee()
		if t.State.CountsTowardWorkload() {
			c.adjustWorkload(assignee, -1)
		}
		closedAt := c.now
		t.State = next
		t.AssignedStaff = nil
		t.ClosedAt = &closedAt
		t.ClosureReason = strings.TrimSpace(reason)
		c.emit(domain.TicketEvent{
			Kind:    domain.EventClosed,
			ActorID: actorID,
			StaffID: assignee,
			Detail:  t.ClosureReason,
		})
		return nil
	})
}

// Reopen returns a Closed ticket to Open with a fresh response timer. Without an
// override the reopen must fall inside the policy's reopen window.
func (s *TicketService) Reopen(ctx context.Context, ticketID int64, actorID string, override bool) (*domain.Ticket, error) {
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		next, err := t.NextState(domain.ActionReopen)
		if err != nil {
			return err
		}
		if override {
			if _, err := s.loadStaff(ctx, actorID); err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return apperrors.NewForbidden("reopen override requires a staff member")
				}
				return err
			}
		} else {
			window := s.engine.ReopenWindow(t.Policy)
			if window <= 0 || t.ClosedAt == nil || c.now.Sub(*t.ClosedAt) > window {
				return apperrors.NewReopenWindowExpired(t.ID)
			}
		}

		t.State = next
		t.AssignedStaff = nil
		t.ClaimedAt = nil
		t.ClosedAt = nil
		t.ClosureReason = ""
		t.OpenedAt = c.now
		if t.Policy != nil {
			t.Timers = append(t.Timers, s.engine.Start(t.Policy, t.ID, domain.TimerKindResponse, c.now))
		}
		detail := ""
		if override {
			detail = "override"
		}
		c.emit(domain.TicketEvent{Kind: domain.EventReopened, ActorID: actorID, Detail: detail})
		return nil
	})
}

// AddNote appends a staff-only note. Closed tickets keep their transcript frozen.
func (s *TicketService) AddNote(ctx context.Context, ticketID int64, authorID, text string) (*domain.Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("note text required", nil)
	}
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		if t.State == domain.TicketStateClosed {
			return apperrors.NewInvalidTransition(string(t.State), "add_note")
		}
		note := domain.InternalNote{
			ID:        uuid.NewString(),
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: c.now,
		}
		t.Notes = append(t.Notes, note)
		c.emit(domain.TicketEvent{Kind: domain.EventNoteAdded, ActorID: authorID, Detail: note.ID})
		return nil
	})
}

// ScheduleFollowup records when the ticket should be revisited.
func (s *TicketService) ScheduleFollowup(ctx context.Context, ticketID int64, at time.Time, actorID string) (*domain.Ticket, error) {
	if at.IsZero() {
		return nil, apperrors.NewValidationError("follow-up time required", nil)
	}
	at = at.UTC()
	return s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		if t.State == domain.TicketStateClosed {
			return apperrors.NewInvalidTransition(string(t.State), "schedule_followup")
		}
		if !at.After(c.now) {
			return apperrors.NewValidationError("follow-up time must be in the future",
				map[string]any{"at": at})
		}
		followupAt := at
		t.FollowupAt = &followupAt
		c.emit(domain.TicketEvent{
			Kind:    domain.EventFollowupScheduled,
			ActorID: actorID,
			Detail:  at.Format(time.RFC3339),
		})
		return nil
	})
}

// Link records a symmetric link between two tickets. Linking an existing pair is a
// no-op; the result reports whether a new link was stored.
func (s *TicketService) Link(ctx context.Context, ticketA, ticketB int64, actorID string) (bool, error) {
	if ticketA == ticketB {
		return false, apperrors.NewValidationError("cannot link a ticket to itself", map[string]any{"ticket_id": ticketA})
	}
	unlock, err := s.store.locks.acquireAll(ctx, ticketA, ticketB)
	if err != nil {
		return false, apperrors.NewRepositoryTimeout(err)
	}
	defer unlock()

	first, err := s.store.load(ctx, ticketA)
	if err != nil {
		return false, err
	}
	second, err := s.store.load(ctx, ticketB)
	if err != nil {
		return false, err
	}

	now := s.store.Now()
	link := domain.NewTicketLink(ticketA, ticketB)
	var (
		created bool
		emitted []*change
	)
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	err = s.store.repo.InTx(rctx, func(tx repository.Tx) error {
		emitted = nil
		ok, err := tx.AddLink(rctx, link)
		if err != nil {
			return err
		}
		created = ok
		if !ok {
			return nil
		}
		for _, pair := range [][2]*domain.Ticket{{first, second}, {second, first}} {
			c := &change{ticket: pair[0], now: now}
			c.emit(domain.TicketEvent{
				Kind:    domain.EventLinked,
				ActorID: actorID,
				Detail:  strconv.FormatInt(pair[1].ID, 10),
			})
			if err := tx.AppendEvent(rctx, &c.events[0]); err != nil {
				return err
			}
			emitted = append(emitted, c)
		}
		return nil
	})
	if err != nil {
		return false, mapRepoError(err, "ticket", nil)
	}
	for _, c := range emitted {
		s.store.publish(ctx, c.ticket, c.events)
	}
	return created, nil
}

// SubmitFeedback stores the creator's satisfaction rating for a Closed ticket,
// attributed to the staff member assigned when it closed.
func (s *TicketService) SubmitFeedback(ctx context.Context, ticketID int64, userID string, rating int, comment string) (*domain.Feedback, error) {
	if rating < domain.MinRating || rating > domain.MaxRating {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	var feedback *domain.Feedback
	_, err := s.store.mutate(ctx, ticketID, func(c *change) error {
		t := c.ticket
		if t.State != domain.TicketStateClosed {
			return apperrors.NewInvalidTransition(string(t.State), "submit_feedback")
		}
		if userID != t.CreatorID {
			return apperrors.NewForbidden("only the ticket creator can rate it")
		}
		staffID, err := s.closingStaff(ctx, t.ID)
		if err != nil {
			return err
		}

		c.save = false
		feedback = &domain.Feedback{
			TicketID:    t.ID,
			UserID:      userID,
			StaffID:     staffID,
			CategoryID:  t.CategoryID,
			Rating:      rating,
			Comment:     strings.TrimSpace(comment),
			SubmittedAt: c.now,
		}
		fb := *feedback
		c.write(func(ctx context.Context, tx repository.Tx) error {
			err := tx.InsertFeedback(ctx, &fb)
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("feedback already submitted", map[string]any{"ticket_id": t.ID})
			}
			return err
		})
		c.emit(domain.TicketEvent{
			Kind:    domain.EventFeedbackSubmitted,
			ActorID: userID,
			StaffID: staffID,
			Detail:  strconv.Itoa(rating),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

// AutoAssign claims an Open ticket for the best-ranked on-duty staff member.
func (s *TicketService) AutoAssign(ctx context.Context, ticketID int64, actorID string) (*domain.Ticket, error) {
	ticket, err := s.store.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if _, err := ticket.NextState(domain.ActionClaim); err != nil {
		return nil, err
	}
	candidates, err := s.workload.Suggest(ctx, ticket.GuildID, ticket.CategoryID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		claimed, err := s.claimAs(ctx, ticketID, candidate.Staff.ID, actorID)
		if errors.Is(err, apperrors.ErrStaffOffDuty) {
			continue
		}
		return claimed, err
	}
	return nil, apperrors.NewConflict("no on-duty staff available",
		map[string]any{"ticket_id": ticketID, "guild_id": ticket.GuildID})
}

// Reassign hands a ticket to the best available staff member other than its
// current assignee. Open tickets are auto-assigned; Resolved and Closed tickets
// are left alone.
func (s *TicketService) Reassign(ctx context.Context, ticketID int64, actorID string) (*domain.Ticket, error) {
	ticket, err := s.store.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch {
	case ticket.State == domain.TicketStateOpen:
		return s.AutoAssign(ctx, ticketID, actorID)
	case !domain.CanApply(ticket.State, domain.ActionTransfer):
		return ticket, nil
	}

	candidates, err := s.workload.Suggest(ctx, ticket.GuildID, ticket.CategoryID, ticket.Assignee())
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		moved, err := s.Transfer(ctx, ticketID, candidate.Staff.ID, actorID)
		if errors.Is(err, apperrors.ErrStaffOffDuty) {
			continue
		}
		return moved, err
	}
	return ticket, nil
}

func (s *TicketService) requireOnDuty(ctx context.Context, ticket *domain.Ticket, staffID string) error {
	staff, err := s.loadStaff(ctx, staffID)
	if err != nil {
		return err
	}
	if staff.GuildID != "" && ticket.GuildID != "" && staff.GuildID != ticket.GuildID {
		return apperrors.NewForbidden("staff member belongs to another guild")
	}
	if !staff.OnDuty {
		return apperrors.NewStaffOffDuty(staffID)
	}
	return nil
}

func (s *TicketService) loadStaff(ctx context.Context, staffID string) (*domain.StaffMember, error) {
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	staff, err := s.store.repo.LoadStaff(rctx, staffID)
	if err != nil {
		return nil, mapRepoError(err, "staff", staffID)
	}
	return staff, nil
}

func (s *TicketService) loadPolicy(ctx context.Context, categoryID string) (*domain.SLAPolicy, error) {
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	policy, err := s.store.repo.LoadPolicy(rctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewPolicyNotFound(categoryID)
	}
	if err != nil {
		return nil, mapRepoError(err, "policy", categoryID)
	}
	return policy, nil
}

// closingStaff reads the assignee recorded on the latest Closed event.
func (s *TicketService) closingStaff(ctx context.Context, ticketID int64) (string, error) {
	rctx, cancel := s.store.repoContext(ctx)
	defer cancel()
	list, err := s.store.repo.ListEvents(rctx, repository.EventFilter{TicketID: &ticketID})
	if err != nil {
		return "", mapRepoError(err, "ticket", ticketID)
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Kind == domain.EventClosed {
			return list[i].StaffID, nil
		}
	}
	return "", nil
}
