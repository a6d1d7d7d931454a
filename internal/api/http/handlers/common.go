package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/dto"
	"github.com/did4510/Nexon/internal/auth"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/service"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok || p.ActorID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// bind parses the JSON body into req and validates it. An empty body is
// validated as the zero value.
func bind(c *fiber.Ctx, req any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return dto.Validate(req)
}

func ticketIDParam(c *fiber.Ctx) (int64, error) {
	return positiveIDParam(c, "id")
}

func positiveIDParam(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be RFC3339", map[string]any{key: raw})
	}
	t = t.UTC()
	return &t, nil
}

func parseBoolQuery(c *fiber.Ctx, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be a boolean", map[string]any{key: raw})
	}
	return &v, nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	timers := make([]dto.TimerResponse, 0, len(ticket.Timers))
	for _, t := range ticket.Timers {
		timers = append(timers, dto.TimerResponse{
			ID:           t.ID,
			Kind:         t.Kind,
			StartedAt:    t.StartedAt,
			WarningAt:    t.WarningAt,
			Deadline:     t.Deadline,
			WarningFired: t.WarningFired,
			BreachFired:  t.BreachFired,
			Stopped:      t.Stopped,
			Paused:       t.Paused(),
		})
	}
	linked := ticket.LinkedTickets
	if linked == nil {
		linked = []int64{}
	}
	resp := dto.TicketResponse{
		ID:            ticket.ID,
		GuildID:       ticket.GuildID,
		Number:        ticket.Number,
		CategoryID:    ticket.CategoryID,
		Anonymous:     ticket.Anonymous,
		State:         ticket.State,
		Priority:      ticket.Priority,
		AssignedStaff: ticket.AssignedStaff,
		PolicyApplied: ticket.PolicyApplied,
		CreatedAt:     ticket.CreatedAt,
		OpenedAt:      ticket.OpenedAt,
		ClaimedAt:     ticket.ClaimedAt,
		UpdatedAt:     ticket.UpdatedAt,
		ClosedAt:      ticket.ClosedAt,
		ClosureReason: ticket.ClosureReason,
		FollowupAt:    ticket.FollowupAt,
		LinkedTickets: linked,
		Notes:         ticket.Notes,
		Timers:        timers,
		Version:       ticket.Version,
	}
	if !ticket.Anonymous {
		resp.CreatorID = ticket.CreatorID
	}
	return resp
}

// userTicketResponse hides staff-only fields.
func userTicketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := ticketResponse(ticket)
	resp.Notes = nil
	return resp
}

func eventResponses(events []domain.TicketEvent) []dto.EventResponse {
	resp := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, dto.EventResponse{
			ID:        e.ID,
			Seq:       e.Seq,
			Kind:      e.Kind,
			At:        e.At,
			ActorID:   e.ActorID,
			StaffID:   e.StaffID,
			TimerKind: e.TimerKind,
			ElapsedMS: e.Elapsed.Milliseconds(),
			Detail:    e.Detail,
		})
	}
	return resp
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	tags := staff.Specializations
	if tags == nil {
		tags = []string{}
	}
	return dto.StaffResponse{
		ID:              staff.ID,
		GuildID:         staff.GuildID,
		OnDuty:          staff.OnDuty,
		OnDutySince:     staff.OnDutySince,
		Specializations: tags,
		ActiveCount:     staff.ActiveCount,
		UpdatedAt:       staff.UpdatedAt,
	}
}

func candidateResponses(candidates []service.Candidate) []dto.CandidateResponse {
	resp := make([]dto.CandidateResponse, 0, len(candidates))
	for i := range candidates {
		resp = append(resp, dto.CandidateResponse{
			Staff:          staffResponse(&candidates[i].Staff),
			Specialized:    candidates[i].Specialized,
			HasHistory:     candidates[i].HasHistory,
			AvgResolutionS: candidates[i].AvgResolution.Seconds(),
		})
	}
	return resp
}
