package domain

import "time"

// PerformanceScope selects whose metrics are computed.
type PerformanceScope string

const (
	ScopeStaff    PerformanceScope = "staff"
	ScopeCategory PerformanceScope = "category"
)

// IsValid reports whether s is a known scope.
func (s PerformanceScope) IsValid() bool {
	return s == ScopeStaff || s == ScopeCategory
}

// Window is a half-open time interval [From, To). Zero bounds are unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// Distribution summarizes a set of durations.
type Distribution struct {
	Count int
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// PerformanceSnapshot is derived on demand from the event log and feedback.
type PerformanceSnapshot struct {
	Scope             PerformanceScope
	ID                string
	Window            Window
	Tickets           int
	PolicyTickets     int
	ResponseTime      Distribution
	ResolutionTime    Distribution
	WarningCount      int
	BreachCount       int
	BreachedTickets   int
	BreachRate        float64
	SatisfactionCount int
	SatisfactionMean  float64
}
