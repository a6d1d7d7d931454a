package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/did4510/Nexon/internal/domain"
)

const ticketColumns = `id, guild_id, number, category_id, creator_id, anonymous, state, priority,
               assigned_staff, policy_applied, policy, created_at, opened_at, claimed_at, updated_at,
               closed_at, closure_reason, followup_at, notes, version`

const timerColumns = `id, ticket_id, kind, started_at, warning_at, deadline, warning_fired,
               breach_fired, stopped, stopped_at, paused_at, paused_ms`

func (r *postgresRepository) LoadTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	return loadTicket(ctx, r.pool, id)
}

func loadTicket(ctx context.Context, q querier, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.Number,
		&ticket.CategoryID,
		&ticket.CreatorID,
		&ticket.Anonymous,
		&ticket.State,
		&ticket.Priority,
		&ticket.AssignedStaff,
		&ticket.PolicyApplied,
		&ticket.Policy,
		&ticket.CreatedAt,
		&ticket.OpenedAt,
		&ticket.ClaimedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
		&ticket.ClosureReason,
		&ticket.FollowupAt,
		&ticket.Notes,
		&ticket.Version,
	); err != nil {
		return nil, mapNoRows(err)
	}

	timers, err := loadTimers(ctx, q, id)
	if err != nil {
		return nil, err
	}
	ticket.Timers = timers

	linked, err := loadLinks(ctx, q, id)
	if err != nil {
		return nil, err
	}
	ticket.LinkedTickets = linked
	return &ticket, nil
}

func loadTimers(ctx context.Context, q querier, ticketID int64) ([]domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE ticket_id=$1 ORDER BY started_at ASC, id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLATimer
	for rows.Next() {
		var (
			timer    domain.SLATimer
			pausedMS int64
		)
		if err := rows.Scan(
			&timer.ID,
			&timer.TicketID,
			&timer.Kind,
			&timer.StartedAt,
			&timer.WarningAt,
			&timer.Deadline,
			&timer.WarningFired,
			&timer.BreachFired,
			&timer.Stopped,
			&timer.StoppedAt,
			&timer.PausedAt,
			&pausedMS,
		); err != nil {
			return nil, err
		}
		timer.PausedFor = time.Duration(pausedMS) * time.Millisecond
		result = append(result, timer)
	}
	return result, rows.Err()
}

func loadLinks(ctx context.Context, q querier, ticketID int64) ([]int64, error) {
	const query = `
        SELECT CASE WHEN a=$1 THEN b ELSE a END AS other
        FROM ticket_links WHERE a=$1 OR b=$1 ORDER BY other ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []int64
	for rows.Next() {
		var other int64
		if err := rows.Scan(&other); err != nil {
			return nil, err
		}
		result = append(result, other)
	}
	return result, rows.Err()
}

func (r *postgresRepository) LoadActiveTimers(ctx context.Context, before time.Time) ([]domain.TimerRef, error) {
	const query = `
        SELECT ticket_id, id, kind, warning_at, deadline
        FROM sla_timers
        WHERE stopped=false AND paused_at IS NULL
          AND ((warning_fired=false AND warning_at <= $1) OR (breach_fired=false AND deadline <= $1))
        ORDER BY warning_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimerRef
	for rows.Next() {
		var ref domain.TimerRef
		if err := rows.Scan(&ref.TicketID, &ref.TimerID, &ref.Kind, &ref.WarningAt, &ref.Deadline); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

func (r *postgresRepository) ListDueFollowups(ctx context.Context, before time.Time) ([]int64, error) {
	const query = `
        SELECT id FROM tickets
        WHERE followup_at IS NOT NULL AND followup_at <= $1 AND state <> $2
        ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, before, domain.TicketStateClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *postgresTx) NextTicketNumber(ctx context.Context, guildID string) (int64, error) {
	const query = `
        INSERT INTO ticket_counters (guild_id, last_number) VALUES ($1, 1)
        ON CONFLICT (guild_id) DO UPDATE SET last_number = ticket_counters.last_number + 1
        RETURNING last_number`
	var number int64
	err := t.q.QueryRow(ctx, query, guildID).Scan(&number)
	return number, err
}

func (t *postgresTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (guild_id, number, category_id, creator_id, anonymous, state, priority,
            assigned_staff, policy_applied, policy, created_at, opened_at, claimed_at, updated_at,
            closed_at, closure_reason, followup_at, notes, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,1)
        RETURNING id, version`
	notes := ticket.Notes
	if notes == nil {
		notes = []domain.InternalNote{}
	}
	if err := t.q.QueryRow(ctx, query,
		ticket.GuildID,
		ticket.Number,
		ticket.CategoryID,
		ticket.CreatorID,
		ticket.Anonymous,
		ticket.State,
		ticket.Priority,
		ticket.AssignedStaff,
		ticket.PolicyApplied,
		ticket.Policy,
		ticket.CreatedAt,
		ticket.OpenedAt,
		ticket.ClaimedAt,
		ticket.UpdatedAt,
		ticket.ClosedAt,
		ticket.ClosureReason,
		ticket.FollowupAt,
		notes,
	).Scan(&ticket.ID, &ticket.Version); err != nil {
		return err
	}
	for i := range ticket.Timers {
		ticket.Timers[i].TicketID = ticket.ID
	}
	return t.upsertTimers(ctx, ticket.Timers)
}

func (t *postgresTx) SaveTicket(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET state=$1, priority=$2, assigned_staff=$3, policy_applied=$4, opened_at=$5,
            claimed_at=$6, updated_at=$7, closed_at=$8, closure_reason=$9, followup_at=$10, notes=$11,
            version=version+1
        WHERE id=$12 AND version=$13`
	notes := ticket.Notes
	if notes == nil {
		notes = []domain.InternalNote{}
	}
	cmd, err := t.q.Exec(ctx, query,
		ticket.State,
		ticket.Priority,
		ticket.AssignedStaff,
		ticket.PolicyApplied,
		ticket.OpenedAt,
		ticket.ClaimedAt,
		ticket.UpdatedAt,
		ticket.ClosedAt,
		ticket.ClosureReason,
		ticket.FollowupAt,
		notes,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := t.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return t.upsertTimers(ctx, ticket.Timers)
}

func (t *postgresTx) upsertTimers(ctx context.Context, timers []domain.SLATimer) error {
	const query = `
        INSERT INTO sla_timers (id, ticket_id, kind, started_at, warning_at, deadline, warning_fired,
            breach_fired, stopped, stopped_at, paused_at, paused_ms)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO UPDATE SET warning_at=EXCLUDED.warning_at, deadline=EXCLUDED.deadline,
            warning_fired=EXCLUDED.warning_fired, breach_fired=EXCLUDED.breach_fired,
            stopped=EXCLUDED.stopped, stopped_at=EXCLUDED.stopped_at, paused_at=EXCLUDED.paused_at,
            paused_ms=EXCLUDED.paused_ms`
	for _, timer := range timers {
		if _, err := t.q.Exec(ctx, query,
			timer.ID,
			timer.TicketID,
			timer.Kind,
			timer.StartedAt,
			timer.WarningAt,
			timer.Deadline,
			timer.WarningFired,
			timer.BreachFired,
			timer.Stopped,
			timer.StoppedAt,
			timer.PausedAt,
			timer.PausedFor.Milliseconds(),
		); err != nil {
			return err
		}
	}
	return nil
}

func (t *postgresTx) AddLink(ctx context.Context, link domain.TicketLink) (bool, error) {
	const query = `INSERT INTO ticket_links (a, b) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	cmd, err := t.q.Exec(ctx, query, link.A, link.B)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}
