package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/did4510/Nexon/internal/api/dto"
	"github.com/did4510/Nexon/internal/domain"
	"github.com/did4510/Nexon/internal/service"
)

// PolicyHandler manages per-category SLA policies and performance reports.
type PolicyHandler struct {
	policies    *service.PolicyService
	performance *service.PerformanceService
}

func NewPolicyHandler(policies *service.PolicyService, performance *service.PerformanceService) *PolicyHandler {
	return &PolicyHandler{policies: policies, performance: performance}
}

// Put PUT /policies/:category. Running timers keep the deadlines they started with.
func (h *PolicyHandler) Put(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	policy := domain.SLAPolicy{
		CategoryID:         c.Params("category"),
		ResponseDuration:   time.Duration(req.ResponseSeconds) * time.Second,
		ResolutionDuration: time.Duration(req.ResolutionSeconds) * time.Second,
		WarningFraction:    req.WarningFraction,
		PauseOnPending:     req.PauseOnPending,
	}
	if req.ReopenWindowSeconds != nil {
		window := time.Duration(*req.ReopenWindowSeconds) * time.Second
		policy.ReopenWindow = &window
	}
	saved, err := h.policies.PutPolicy(c.UserContext(), policy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(saved)})
}

// Get GET /policies/:category.
func (h *PolicyHandler) Get(c *fiber.Ctx) error {
	policy, err := h.policies.GetPolicy(c.UserContext(), c.Params("category"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// Performance GET /performance?scope=&id=&from=&to=.
func (h *PolicyHandler) Performance(c *fiber.Ctx) error {
	query := dto.PerformanceQuery{Scope: c.Query("scope"), ID: c.Query("id")}
	var err error
	if query.From, err = parseTimeQuery(c, "from"); err != nil {
		return err
	}
	if query.To, err = parseTimeQuery(c, "to"); err != nil {
		return err
	}
	if err := dto.Validate(&query); err != nil {
		return err
	}

	var window domain.Window
	if query.From != nil {
		window.From = *query.From
	}
	if query.To != nil {
		window.To = *query.To
	}
	snapshot, err := h.performance.ComputePerformance(c.UserContext(), domain.PerformanceScope(query.Scope), query.ID, window)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PerformanceResponse{
		Scope:             string(snapshot.Scope),
		ID:                snapshot.ID,
		From:              query.From,
		To:                query.To,
		Tickets:           snapshot.Tickets,
		PolicyTickets:     snapshot.PolicyTickets,
		ResponseTime:      distributionResponse(snapshot.ResponseTime),
		ResolutionTime:    distributionResponse(snapshot.ResolutionTime),
		WarningCount:      snapshot.WarningCount,
		BreachCount:       snapshot.BreachCount,
		BreachedTickets:   snapshot.BreachedTickets,
		BreachRate:        snapshot.BreachRate,
		SatisfactionCount: snapshot.SatisfactionCount,
		SatisfactionMean:  snapshot.SatisfactionMean,
	}})
}

func policyResponse(policy *domain.SLAPolicy) dto.PolicyResponse {
	resp := dto.PolicyResponse{
		CategoryID:        policy.CategoryID,
		ResponseSeconds:   int64(policy.ResponseDuration / time.Second),
		ResolutionSeconds: int64(policy.ResolutionDuration / time.Second),
		WarningFraction:   policy.WarningFraction,
		PauseOnPending:    policy.PauseOnPending,
		UpdatedAt:         policy.UpdatedAt,
	}
	if policy.ReopenWindow != nil {
		seconds := int64(*policy.ReopenWindow / time.Second)
		resp.ReopenWindowSeconds = &seconds
	}
	return resp
}

func distributionResponse(d domain.Distribution) dto.DistributionResponse {
	return dto.DistributionResponse{
		Count: d.Count,
		Mean:  d.Mean.Seconds(),
		P50:   d.P50.Seconds(),
		P90:   d.P90.Seconds(),
		P95:   d.P95.Seconds(),
		Max:   d.Max.Seconds(),
	}
}
