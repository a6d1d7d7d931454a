// Package performance derives staff and category metrics from the ticket event log.
// Every function here is pure: the same log and arguments give the same result.
package performance

import (
	"math"
	"sort"
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

// Compute builds the snapshot for one staff member or category over window.
//
// Response time samples come from Claimed events and resolution time samples from
// Resolved events. The breach rate divides the distinct breached tickets by the
// distinct tickets with a policy applied, so a ticket that never resolved still
// counts in the denominator.
func Compute(scope domain.PerformanceScope, id string, window domain.Window, log []domain.TicketEvent, feedback []domain.Feedback) domain.PerformanceSnapshot {
	snapshot := domain.PerformanceSnapshot{Scope: scope, ID: id, Window: window}

	tickets := make(map[int64]struct{})
	policyTickets := make(map[int64]struct{})
	breached := make(map[int64]struct{})
	var response, resolution []time.Duration

	for _, event := range log {
		if !window.Contains(event.At) || !matches(scope, id, event) {
			continue
		}
		tickets[event.TicketID] = struct{}{}
		if event.PolicyApplied {
			policyTickets[event.TicketID] = struct{}{}
		}
		switch event.Kind {
		case domain.EventClaimed:
			response = append(response, event.Elapsed)
		case domain.EventResolved:
			resolution = append(resolution, event.Elapsed)
		case domain.EventWarningFired:
			snapshot.WarningCount++
		case domain.EventBreachFired:
			snapshot.BreachCount++
			breached[event.TicketID] = struct{}{}
		}
	}

	snapshot.Tickets = len(tickets)
	snapshot.PolicyTickets = len(policyTickets)
	snapshot.ResponseTime = Summarize(response)
	snapshot.ResolutionTime = Summarize(resolution)
	for ticketID := range breached {
		if _, ok := policyTickets[ticketID]; ok {
			snapshot.BreachedTickets++
		}
	}
	if snapshot.PolicyTickets > 0 {
		snapshot.BreachRate = float64(snapshot.BreachedTickets) / float64(snapshot.PolicyTickets)
	}

	var ratingSum int
	for _, fb := range feedback {
		if !window.Contains(fb.SubmittedAt) {
			continue
		}
		if (scope == domain.ScopeStaff && fb.StaffID == id) || (scope == domain.ScopeCategory && fb.CategoryID == id) {
			snapshot.SatisfactionCount++
			ratingSum += fb.Rating
		}
	}
	if snapshot.SatisfactionCount > 0 {
		snapshot.SatisfactionMean = float64(ratingSum) / float64(snapshot.SatisfactionCount)
	}
	return snapshot
}

func matches(scope domain.PerformanceScope, id string, event domain.TicketEvent) bool {
	switch scope {
	case domain.ScopeStaff:
		return event.StaffID == id
	case domain.ScopeCategory:
		return event.CategoryID == id
	}
	return false
}

// Summarize returns mean and nearest-rank percentiles of samples.
func Summarize(samples []time.Duration) domain.Distribution {
	if len(samples) == 0 {
		return domain.Distribution{}
	}
	sorted := append([]time.Duration{}, samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return domain.Distribution{
		Count: len(sorted),
		Mean:  sum / time.Duration(len(sorted)),
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P95:   percentile(sorted, 95),
		Max:   sorted[len(sorted)-1],
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted)) / 100))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

// AverageResolution returns each staff member's mean resolution time for a category.
// Staff without a resolved ticket in the category are absent from the result.
func AverageResolution(log []domain.TicketEvent, categoryID string) map[string]time.Duration {
	sums := make(map[string]time.Duration)
	counts := make(map[string]int)
	for _, event := range log {
		if event.Kind != domain.EventResolved || event.CategoryID != categoryID || event.StaffID == "" {
			continue
		}
		sums[event.StaffID] += event.Elapsed
		counts[event.StaffID]++
	}
	averages := make(map[string]time.Duration, len(sums))
	for staffID, sum := range sums {
		averages[staffID] = sum / time.Duration(counts[staffID])
	}
	return averages
}
