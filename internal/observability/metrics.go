package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics keeps in-process counters exposed on /metrics.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	requestLatency map[string]time.Duration
	errorCount     map[string]int64
	sla            SLACounters
}

// SLACounters accumulate escalation driver results.
type SLACounters struct {
	Ticks             int64 `json:"ticks"`
	TicksFailed       int64 `json:"ticks_failed"`
	Warnings          int64 `json:"warnings"`
	Breaches          int64 `json:"breaches"`
	TickFailures      int64 `json:"tick_ticket_failures"`
	FollowupsNotified int64 `json:"followups_notified"`
	Reconciles        int64 `json:"reconciles"`
	WorkloadFixes     int64 `json:"workload_corrections"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests       map[string]int64  `json:"requests"`
	RequestLatency map[string]string `json:"request_latency_total"`
	Errors         map[string]int64  `json:"errors"`
	SLA            SLACounters       `json:"sla"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		requestLatency: make(map[string]time.Duration),
		errorCount:     make(map[string]int64),
	}
}

// RecordRequest counts a request and its latency by route, method and status.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, strconv.Itoa(status))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := pathKey(path, method, code)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTick folds one escalation tick into the SLA counters.
func (m *Metrics) RecordTick(warnings, breaches, failures int, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sla.Ticks++
	if err != nil {
		m.sla.TicksFailed++
	}
	m.sla.Warnings += int64(warnings)
	m.sla.Breaches += int64(breaches)
	m.sla.TickFailures += int64(failures)
}

func (m *Metrics) RecordFollowups(notified int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sla.FollowupsNotified += int64(notified)
}

func (m *Metrics) RecordReconcile(corrections int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sla.Reconciles++
	m.sla.WorkloadFixes += int64(corrections)
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:       map[string]int64{},
		RequestLatency: map[string]string{},
		Errors:         map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.requestLatency {
		snap.RequestLatency[k] = v.String()
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	snap.SLA = m.sla
	return snap
}

func pathKey(path, method, suffix string) string {
	return path + "|" + method + "|" + suffix
}
