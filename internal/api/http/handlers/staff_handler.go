package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/dto"
	"github.com/did4510/Nexon/internal/service"
	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// StaffHandler manages staff profiles, duty status and assignment suggestions.
type StaffHandler struct {
	staff    *service.StaffService
	workload *service.WorkloadTracker
}

func NewStaffHandler(staff *service.StaffService, workload *service.WorkloadTracker) *StaffHandler {
	return &StaffHandler{staff: staff, workload: workload}
}

// Upsert PUT /staff/:id.
func (h *StaffHandler) Upsert(c *fiber.Ctx) error {
	var req dto.UpsertStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staff.UpsertStaff(c.UserContext(), service.StaffInput{
		ID:              c.Params("id"),
		GuildID:         req.GuildID,
		Specializations: req.Specializations,
		OnDuty:          req.OnDuty,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// SetDuty POST /staff/:id/duty.
func (h *StaffHandler) SetDuty(c *fiber.Ctx) error {
	var req dto.DutyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	staff, err := h.staff.SetDuty(c.UserContext(), c.Params("id"), *req.OnDuty)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// Get GET /staff/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	staff, err := h.staff.GetStaff(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// List GET /staff?guild_id=&on_duty=.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	onDuty, err := parseBoolQuery(c, "on_duty")
	if err != nil {
		return err
	}
	list, err := h.staff.ListStaff(c.UserContext(), service.StaffListFilters{
		GuildID: c.Query("guild_id"),
		OnDuty:  onDuty,
	})
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		items = append(items, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Candidates GET /staff/candidates?guild_id=&category_id= returns on-duty staff in
// assignment order.
func (h *StaffHandler) Candidates(c *fiber.Ctx) error {
	guildID, categoryID := c.Query("guild_id"), c.Query("category_id")
	if guildID == "" || categoryID == "" {
		return apperrors.NewValidationError("guild_id and category_id required", nil)
	}
	candidates, err := h.workload.Suggest(c.UserContext(), guildID, categoryID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": candidateResponses(candidates)})
}
