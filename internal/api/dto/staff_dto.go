package dto

import "time"

// UpsertStaffRequest registers a staff member or updates tags and duty.
type UpsertStaffRequest struct {
	GuildID         string   `json:"guild_id" validate:"required,max=64"`
	Specializations []string `json:"specializations" validate:"max=32,dive,required,max=64"`
	OnDuty          *bool    `json:"on_duty"`
}

type DutyRequest struct {
	OnDuty *bool `json:"on_duty" validate:"required"`
}

type StaffResponse struct {
	ID              string     `json:"id"`
	GuildID         string     `json:"guild_id"`
	OnDuty          bool       `json:"on_duty"`
	OnDutySince     *time.Time `json:"on_duty_since,omitempty"`
	Specializations []string   `json:"specializations"`
	ActiveCount     int        `json:"active_count"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CandidateResponse is one ranked auto-assignment suggestion.
type CandidateResponse struct {
	Staff          StaffResponse `json:"staff"`
	Specialized    bool          `json:"specialized"`
	HasHistory     bool          `json:"has_history"`
	AvgResolutionS float64       `json:"avg_resolution_seconds,omitempty"`
}

type ReconcileResponse struct {
	Checked     int                  `json:"checked"`
	Corrections []WorkloadCorrection `json:"corrections"`
}

type WorkloadCorrection struct {
	StaffID string `json:"staff_id"`
	Stored  int    `json:"stored"`
	Actual  int    `json:"actual"`
}
