package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/dto"
	"github.com/did4510/Nexon/internal/auth"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/service"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service *service.TicketService
}

func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	creator := p.ActorID
	if req.CreatorID != "" && req.CreatorID != p.ActorID {
		if p.Role != auth.RoleGateway {
			return apperrors.NewForbidden("only the gateway may open tickets for another user")
		}
		creator = req.CreatorID
	}
	if p.GuildID != "" && p.GuildID != req.GuildID {
		return apperrors.NewForbidden("token is scoped to another guild")
	}

	created, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
		GuildID:    req.GuildID,
		CategoryID: req.CategoryID,
		CreatorID:  creator,
		Anonymous:  req.Anonymous,
		Priority:   req.Priority,
	})
	if err != nil {
		return err
	}

	resp := ticketResponse(created.Ticket)
	for _, warning := range created.Warnings {
		resp.Warnings = append(resp.Warnings, apperrors.ToDomainError(warning).Message)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// GetTicket GET /tickets/:id. Notes are only shown to staff.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	if p.Role == auth.RoleUser {
		if ticket.CreatorID != p.ActorID {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return c.JSON(fiber.Map{"data": userTicketResponse(ticket)})
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListEvents GET /tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListEvents(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponses(list)})
}

// Claim POST /tickets/:id/claim. The caller claims for themselves.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Claim(c.UserContext(), id, actor)
	})
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *TicketsHandler) AutoAssign(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.AutoAssign(c.UserContext(), id, actor)
	})
}

// Transfer POST /tickets/:id/transfer.
func (h *TicketsHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Transfer(c.UserContext(), id, req.StaffID, actor)
	})
}

// SetPending POST /tickets/:id/pending.
func (h *TicketsHandler) SetPending(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.SetPending(c.UserContext(), id, actor)
	})
}

// Resume POST /tickets/:id/resume.
func (h *TicketsHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Resume(c.UserContext(), id, actor)
	})
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Resolve(c.UserContext(), id, actor)
	})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	var req dto.CloseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Close(c.UserContext(), id, actor, req.Reason)
	})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	var req dto.ReopenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.Reopen(c.UserContext(), id, actor, req.Override)
	})
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	var req dto.NoteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.AddNote(c.UserContext(), id, actor, req.Text)
	})
}

// ScheduleFollowup POST /tickets/:id/followup.
func (h *TicketsHandler) ScheduleFollowup(c *fiber.Ctx) error {
	var req dto.FollowupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.transition(c, func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error) {
		return h.service.ScheduleFollowup(c.UserContext(), id, req.At.UTC(), actor)
	})
}

// Link POST /tickets/:id/links. Linking an already linked pair reports created=false.
func (h *TicketsHandler) Link(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.LinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.service.Link(c.UserContext(), id, req.TicketID, p.ActorID)
	if err != nil {
		return err
	}
	link := domain.NewTicketLink(id, req.TicketID)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.LinkResponse{TicketA: link.A, TicketB: link.B, Created: created}})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.service.SubmitFeedback(c.UserContext(), id, p.ActorID, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FeedbackResponse{
		TicketID:    feedback.TicketID,
		StaffID:     feedback.StaffID,
		Rating:      feedback.Rating,
		Comment:     feedback.Comment,
		SubmittedAt: feedback.SubmittedAt,
	}})
}

func (h *TicketsHandler) transition(c *fiber.Ctx, apply func(c *fiber.Ctx, id int64, actor string) (*domain.Ticket, error)) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := ticketIDParam(c)
	if err != nil {
		return err
	}
	ticket, err := apply(c, id, p.ActorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}
