package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/dto"
	"github.com/did4510/Nexon/internal/observability"
	"github.com/did4510/Nexon/internal/service"
)

// AdminHandler triggers the periodic sweeps on demand.
type AdminHandler struct {
	scheduler *service.EscalationScheduler
	workload  *service.WorkloadTracker
	metrics   *observability.Metrics
}

func NewAdminHandler(scheduler *service.EscalationScheduler, workload *service.WorkloadTracker, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, workload: workload, metrics: metrics}
}

// RunTick POST /admin/sla/tick.
func (h *AdminHandler) RunTick(c *fiber.Ctx) error {
	report, err := h.scheduler.RunTick(c.UserContext())
	h.metrics.RecordTick(report.Warnings, report.Breaches, report.Failures, err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AdminRunResponse{
		At:       report.At,
		Examined: report.Tickets,
		Warnings: report.Warnings,
		Breaches: report.Breaches,
		Skipped:  report.Skipped,
		Failures: report.Failures,
	}})
}

// RunFollowups POST /admin/followups/run.
func (h *AdminHandler) RunFollowups(c *fiber.Ctx) error {
	report, err := h.scheduler.ProcessDueFollowups(c.UserContext())
	h.metrics.RecordFollowups(report.Notified)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AdminRunResponse{
		At:       report.At,
		Examined: report.Due,
		Notified: report.Notified,
		Skipped:  report.Skipped,
		Failures: report.Failures,
	}})
}

// Reconcile POST /admin/workload/reconcile.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.workload.Reconcile(c.UserContext())
	h.metrics.RecordReconcile(len(report.Corrections))
	if err != nil {
		return err
	}
	corrections := make([]dto.WorkloadCorrection, 0, len(report.Corrections))
	for _, fix := range report.Corrections {
		corrections = append(corrections, dto.WorkloadCorrection{StaffID: fix.StaffID, Stored: fix.Stored, Actual: fix.Actual})
	}
	return c.JSON(fiber.Map{"data": dto.ReconcileResponse{
		Checked:     report.Checked,
		Corrections: corrections,
	}})
}

// Metrics GET /metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
