package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/did4510/Nexon/internal/domain"
)

func (r *postgresRepository) ListEvents(ctx context.Context, filter EventFilter) ([]domain.TicketEvent, error) {
	var (
		conditions []string
		args       []any
		idx        = 1
	)

	if filter.TicketID != nil {
		conditions = append(conditions, fmt.Sprintf("ticket_id = $%d", idx))
		args = append(args, *filter.TicketID)
		idx++
	}
	if filter.CategoryID != "" {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", idx))
		args = append(args, filter.CategoryID)
		idx++
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, kind := range filter.Kinds {
			kinds = append(kinds, string(kind))
		}
		conditions = append(conditions, fmt.Sprintf("kind = ANY($%d)", idx))
		args = append(args, kinds)
		idx++
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, fmt.Sprintf("at < $%d", idx))
		args = append(args, filter.Until)
		idx++
	}

	query := `
        SELECT id, seq, ticket_id, kind, at, actor_id, category_id, staff_id, timer_kind,
               elapsed_ms, policy_applied, detail
        FROM ticket_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var (
			event     domain.TicketEvent
			elapsedMS int64
		)
		if err := rows.Scan(
			&event.ID,
			&event.Seq,
			&event.TicketID,
			&event.Kind,
			&event.At,
			&event.ActorID,
			&event.CategoryID,
			&event.StaffID,
			&event.TimerKind,
			&elapsedMS,
			&event.PolicyApplied,
			&event.Detail,
		); err != nil {
			return nil, err
		}
		event.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		result = append(result, event)
	}
	return result, rows.Err()
}

func (t *postgresTx) AppendEvent(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, kind, at, actor_id, category_id, staff_id, timer_kind,
            elapsed_ms, policy_applied, detail)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING seq`
	return t.q.QueryRow(ctx, query,
		event.ID,
		event.TicketID,
		event.Kind,
		event.At,
		event.ActorID,
		event.CategoryID,
		event.StaffID,
		event.TimerKind,
		event.Elapsed.Milliseconds(),
		event.PolicyApplied,
		event.Detail,
	).Scan(&event.Seq)
}

func (r *postgresRepository) LoadPolicy(ctx context.Context, categoryID string) (*domain.SLAPolicy, error) {
	const query = `
        SELECT category_id, response_ms, resolution_ms, warning_fraction, pause_on_pending,
               reopen_window_ms, updated_at
        FROM sla_policies WHERE category_id=$1`
	var (
		policy       domain.SLAPolicy
		responseMS   int64
		resolutionMS int64
		reopenMS     *int64
	)
	if err := r.pool.QueryRow(ctx, query, categoryID).Scan(
		&policy.CategoryID,
		&responseMS,
		&resolutionMS,
		&policy.WarningFraction,
		&policy.PauseOnPending,
		&reopenMS,
		&policy.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	policy.ResponseDuration = time.Duration(responseMS) * time.Millisecond
	policy.ResolutionDuration = time.Duration(resolutionMS) * time.Millisecond
	if reopenMS != nil {
		window := time.Duration(*reopenMS) * time.Millisecond
		policy.ReopenWindow = &window
	}
	return &policy, nil
}

func (r *postgresRepository) SavePolicy(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (category_id, response_ms, resolution_ms, warning_fraction,
            pause_on_pending, reopen_window_ms, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (category_id) DO UPDATE SET response_ms=EXCLUDED.response_ms,
            resolution_ms=EXCLUDED.resolution_ms, warning_fraction=EXCLUDED.warning_fraction,
            pause_on_pending=EXCLUDED.pause_on_pending, reopen_window_ms=EXCLUDED.reopen_window_ms,
            updated_at=EXCLUDED.updated_at`
	var reopenMS *int64
	if policy.ReopenWindow != nil {
		ms := policy.ReopenWindow.Milliseconds()
		reopenMS = &ms
	}
	_, err := r.pool.Exec(ctx, query,
		policy.CategoryID,
		policy.ResponseDuration.Milliseconds(),
		policy.ResolutionDuration.Milliseconds(),
		policy.WarningFraction,
		policy.PauseOnPending,
		reopenMS,
		policy.UpdatedAt,
	)
	return err
}

func (r *postgresRepository) ListFeedback(ctx context.Context, until time.Time) ([]domain.Feedback, error) {
	query := `
        SELECT ticket_id, user_id, staff_id, category_id, rating, comment, submitted_at
        FROM ticket_feedback`
	var args []any
	if !until.IsZero() {
		query += " WHERE submitted_at < $1"
		args = append(args, until)
	}
	query += " ORDER BY ticket_id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		var fb domain.Feedback
		if err := rows.Scan(
			&fb.TicketID,
			&fb.UserID,
			&fb.StaffID,
			&fb.CategoryID,
			&fb.Rating,
			&fb.Comment,
			&fb.SubmittedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

func (t *postgresTx) InsertFeedback(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, user_id, staff_id, category_id, rating, comment, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (ticket_id) DO NOTHING`
	cmd, err := t.q.Exec(ctx, query,
		feedback.TicketID,
		feedback.UserID,
		feedback.StaffID,
		feedback.CategoryID,
		feedback.Rating,
		feedback.Comment,
		feedback.SubmittedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}
