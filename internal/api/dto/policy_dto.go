package dto

import "time"

// PolicyRequest sets the SLA policy of the category in the path. Durations are seconds.
type PolicyRequest struct {
	ResponseSeconds     int64   `json:"response_seconds" validate:"required,gt=0"`
	ResolutionSeconds   int64   `json:"resolution_seconds" validate:"required,gt=0"`
	WarningFraction     float64 `json:"warning_fraction" validate:"required,gt=0,lt=1"`
	PauseOnPending      *bool   `json:"pause_on_pending"`
	ReopenWindowSeconds *int64  `json:"reopen_window_seconds" validate:"omitempty,gte=0"`
}

type PolicyResponse struct {
	CategoryID          string    `json:"category_id"`
	ResponseSeconds     int64     `json:"response_seconds"`
	ResolutionSeconds   int64     `json:"resolution_seconds"`
	WarningFraction     float64   `json:"warning_fraction"`
	PauseOnPending      *bool     `json:"pause_on_pending,omitempty"`
	ReopenWindowSeconds *int64    `json:"reopen_window_seconds,omitempty"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// PerformanceQuery is bound from the query string.
type PerformanceQuery struct {
	Scope string     `query:"scope" json:"scope" validate:"required,oneof=staff category"`
	ID    string     `query:"id" json:"id" validate:"required"`
	From  *time.Time `query:"-" json:"from"`
	To    *time.Time `query:"-" json:"to"`
}

// DistributionResponse reports durations in seconds.
type DistributionResponse struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean_seconds"`
	P50   float64 `json:"p50_seconds"`
	P90   float64 `json:"p90_seconds"`
	P95   float64 `json:"p95_seconds"`
	Max   float64 `json:"max_seconds"`
}

type PerformanceResponse struct {
	Scope             string               `json:"scope"`
	ID                string               `json:"id"`
	From              *time.Time           `json:"from,omitempty"`
	To                *time.Time           `json:"to,omitempty"`
	Tickets           int                  `json:"tickets"`
	PolicyTickets     int                  `json:"policy_tickets"`
	ResponseTime      DistributionResponse `json:"response_time"`
	ResolutionTime    DistributionResponse `json:"resolution_time"`
	WarningCount      int                  `json:"warning_count"`
	BreachCount       int                  `json:"breach_count"`
	BreachedTickets   int                  `json:"breached_tickets"`
	BreachRate        float64              `json:"breach_rate"`
	SatisfactionCount int                  `json:"satisfaction_count"`
	SatisfactionMean  float64              `json:"satisfaction_mean"`
}

// AdminRunResponse summarizes a manually triggered sweep.
type AdminRunResponse struct {
	At       time.Time `json:"at"`
	Examined int       `json:"examined"`
	Warnings int       `json:"warnings,omitempty"`
	Breaches int       `json:"breaches,omitempty"`
	Notified int       `json:"notified,omitempty"`
	Skipped  int       `json:"skipped"`
	Failures int       `json:"failures"`
}
