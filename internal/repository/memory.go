package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

// Memory is an in-process storage engine used for development and tests. A
// transaction holds the store lock only for the duration of its commit function.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	nextSeq  int64
	numbers  map[string]int64
	tickets  map[int64]*domain.Ticket
	links    map[domain.TicketLink]struct{}
	events   []domain.TicketEvent
	policies map[string]*domain.SLAPolicy
	staff    map[string]domain.StaffMember
	feedback map[int64]domain.Feedback
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		numbers:  make(map[string]int64),
		tickets:  make(map[int64]*domain.Ticket),
		links:    make(map[domain.TicketLink]struct{}),
		policies: make(map[string]*domain.SLAPolicy),
		staff:    make(map[string]domain.StaffMember),
		feedback: make(map[int64]domain.Feedback),
	}
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) LoadTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	ticket := stored.Clone()
	ticket.LinkedTickets = m.linkedLocked(id)
	return ticket, nil
}

func (m *Memory) linkedLocked(id int64) []int64 {
	var linked []int64
	for link := range m.links {
		switch id {
		case link.A:
			linked = append(linked, link.B)
		case link.B:
			linked = append(linked, link.A)
		}
	}
	sort.Slice(linked, func(i, j int) bool { return linked[i] < linked[j] })
	return linked
}

func (m *Memory) LoadActiveTimers(ctx context.Context, before time.Time) ([]domain.TimerRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var refs []domain.TimerRef
	for _, ticket := range m.tickets {
		for _, timer := range ticket.Timers {
			if !timer.NeedsEvaluation(before) {
				continue
			}
			refs = append(refs, domain.TimerRef{
				TicketID:  ticket.ID,
				TimerID:   timer.ID,
				Kind:      timer.Kind,
				WarningAt: timer.WarningAt,
				Deadline:  timer.Deadline,
			})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].WarningAt.Equal(refs[j].WarningAt) {
			return refs[i].WarningAt.Before(refs[j].WarningAt)
		}
		return refs[i].TimerID < refs[j].TimerID
	})
	return refs, nil
}

func (m *Memory) ListDueFollowups(ctx context.Context, before time.Time) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, ticket := range m.tickets {
		if ticket.FollowupAt == nil || ticket.State == domain.TicketStateClosed {
			continue
		}
		if !ticket.FollowupAt.After(before) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ReconcileWorkload counts and rewrites under the store write lock, so no ticket
// transaction can commit between the two.
func (m *Memory) ReconcileWorkload(ctx context.Context) (int, []WorkloadCorrection, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	actual := make(map[string]int)
	for _, ticket := range m.tickets {
		if ticket.AssignedStaff != nil && ticket.State.CountsTowardWorkload() {
			actual[*ticket.AssignedStaff]++
		}
	}

	ids := make([]string, 0, len(m.staff))
	for id := range m.staff {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var corrections []WorkloadCorrection
	for _, id := range ids {
		staff := m.staff[id]
		if staff.ActiveCount == actual[id] {
			continue
		}
		corrections = append(corrections, WorkloadCorrection{StaffID: id, Stored: staff.ActiveCount, Actual: actual[id]})
		staff.ActiveCount = actual[id]
		m.staff[id] = staff
	}
	return len(ids), corrections, nil
}

func (m *Memory) LoadPolicy(ctx context.Context, categoryID string) (*domain.SLAPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	policy, ok := m.policies[categoryID]
	if !ok {
		return nil, ErrNotFound
	}
	return policy.Clone(), nil
}

func (m *Memory) SavePolicy(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policy.CategoryID] = policy.Clone()
	return nil
}

func (m *Memory) LoadStaff(ctx context.Context, id string) (*domain.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	staff, ok := m.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStaff(staff), nil
}

func (m *Memory) ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.StaffMember, 0, len(m.staff))
	for _, staff := range m.staff {
		if filter.GuildID != "" && staff.GuildID != filter.GuildID {
			continue
		}
		if filter.OnDuty != nil && staff.OnDuty != *filter.OnDuty {
			continue
		}
		result = append(result, *cloneStaff(staff))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SaveStaff upserts profile fields. ActiveCount of an existing member is preserved;
// it only changes through AdjustStaffWorkload, SaveStaffWorkload or ReconcileWorkload.
func (m *Memory) SaveStaff(ctx context.Context, staff *domain.StaffMember) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *cloneStaff(*staff)
	if existing, ok := m.staff[staff.ID]; ok {
		stored.ActiveCount = existing.ActiveCount
	} else {
		stored.ActiveCount = 0
	}
	m.staff[staff.ID] = stored
	staff.ActiveCount = stored.ActiveCount
	return nil
}

func (m *Memory) SaveStaffWorkload(ctx context.Context, id string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	staff, ok := m.staff[id]
	if !ok {
		return ErrNotFound
	}
	staff.ActiveCount = count
	m.staff[id] = staff
	return nil
}

func (m *Memory) ListEvents(ctx context.Context, filter EventFilter) ([]domain.TicketEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.TicketEvent
	for _, event := range m.events {
		if filter.TicketID != nil && event.TicketID != *filter.TicketID {
			continue
		}
		if filter.CategoryID != "" && event.CategoryID != filter.CategoryID {
			continue
		}
		if len(filter.Kinds) > 0 && !slices.Contains(filter.Kinds, event.Kind) {
			continue
		}
		if !filter.Until.IsZero() && !event.At.Before(filter.Until) {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (m *Memory) ListFeedback(ctx context.Context, until time.Time) ([]domain.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.Feedback, 0, len(m.feedback))
	for _, fb := range m.feedback {
		if !until.IsZero() && !fb.SubmittedAt.Before(until) {
			continue
		}
		result = append(result, fb)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TicketID < result[j].TicketID })
	return result, nil
}

// InTx stages every write and applies them only if fn returns nil.
func (m *Memory) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{
		store:    m,
		ctx:      ctx,
		tickets:  make(map[int64]*domain.Ticket),
		workload: make(map[string]int),
		links:    make(map[domain.TicketLink]struct{}),
		numbers:  make(map[string]int64),
		nextID:   m.nextID,
		feedback: make(map[int64]domain.Feedback),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.apply()
	return nil
}

type memoryTx struct {
	store    *Memory
	ctx      context.Context
	tickets  map[int64]*domain.Ticket
	events   []domain.TicketEvent
	workload map[string]int
	links    map[domain.TicketLink]struct{}
	numbers  map[string]int64
	nextID   int64
	feedback map[int64]domain.Feedback
}

func (tx *memoryTx) NextTicketNumber(ctx context.Context, guildID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	current, ok := tx.numbers[guildID]
	if !ok {
		current = tx.store.numbers[guildID]
	}
	current++
	tx.numbers[guildID] = current
	return current, nil
}

func (tx *memoryTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.nextID++
	ticket.ID = tx.nextID
	ticket.Version = 1
	for i := range ticket.Timers {
		ticket.Timers[i].TicketID = ticket.ID
	}
	tx.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (tx *memoryTx) SaveTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, ok := tx.tickets[ticket.ID]
	if !ok {
		current, ok = tx.store.tickets[ticket.ID]
	}
	if !ok {
		return ErrNotFound
	}
	if current.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	stored := ticket.Clone()
	stored.LinkedTickets = nil
	tx.tickets[ticket.ID] = stored
	return nil
}

func (tx *memoryTx) AppendEvent(ctx context.Context, event *domain.TicketEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.events = append(tx.events, *event)
	return nil
}

func (tx *memoryTx) AdjustStaffWorkload(ctx context.Context, staffID string, delta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.store.staff[staffID]; !ok {
		return ErrNotFound
	}
	tx.workload[staffID] += delta
	return nil
}

func (tx *memoryTx) AddLink(ctx context.Context, link domain.TicketLink) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := tx.store.links[link]; ok {
		return false, nil
	}
	if _, ok := tx.links[link]; ok {
		return false, nil
	}
	tx.links[link] = struct{}{}
	return true, nil
}

func (tx *memoryTx) InsertFeedback(ctx context.Context, feedback *domain.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.store.feedback[feedback.TicketID]; ok {
		return ErrDuplicate
	}
	if _, ok := tx.feedback[feedback.TicketID]; ok {
		return ErrDuplicate
	}
	tx.feedback[feedback.TicketID] = *feedback
	return nil
}

func (tx *memoryTx) apply() {
	m := tx.store
	m.nextID = tx.nextID
	for guild, number := range tx.numbers {
		m.numbers[guild] = number
	}
	for id, ticket := range tx.tickets {
		m.tickets[id] = ticket
	}
	for i := range tx.events {
		m.nextSeq++
		tx.events[i].Seq = m.nextSeq
		m.events = append(m.events, tx.events[i])
	}
	for staffID, delta := range tx.workload {
		staff := m.staff[staffID]
		staff.ActiveCount += delta
		m.staff[staffID] = staff
	}
	for link := range tx.links {
		m.links[link] = struct{}{}
	}
	for id, fb := range tx.feedback {
		m.feedback[id] = fb
	}
}

func cloneStaff(staff domain.StaffMember) *domain.StaffMember {
	c := staff
	if staff.Specializations != nil {
		c.Specializations = append([]string{}, staff.Specializations...)
	}
	if staff.OnDutySince != nil {
		since := *staff.OnDutySince
		c.OnDutySince = &since
	}
	return &c
}
