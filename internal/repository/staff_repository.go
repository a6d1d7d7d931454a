package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/did4510/Nexon/internal/domain"
)

const staffColumns = `id, guild_id, on_duty, on_duty_since, specializations, active_count, updated_at`

func (r *postgresRepository) LoadStaff(ctx context.Context, id string) (*domain.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_members WHERE id=$1`
	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&staff.ID,
		&staff.GuildID,
		&staff.OnDuty,
		&staff.OnDutySince,
		&staff.Specializations,
		&staff.ActiveCount,
		&staff.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &staff, nil
}

func (r *postgresRepository) ListStaff(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	var (
		conditions []string
		args       []any
		idx        = 1
	)

	if filter.GuildID != "" {
		conditions = append(conditions, fmt.Sprintf("guild_id = $%d", idx))
		args = append(args, filter.GuildID)
		idx++
	}
	if filter.OnDuty != nil {
		conditions = append(conditions, fmt.Sprintf("on_duty = $%d", idx))
		args = append(args, *filter.OnDuty)
		idx++
	}

	query := `SELECT ` + staffColumns + ` FROM staff_members`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(
			&staff.ID,
			&staff.GuildID,
			&staff.OnDuty,
			&staff.OnDutySince,
			&staff.Specializations,
			&staff.ActiveCount,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

// SaveStaff upserts the profile and duty flag. active_count is owned by the
// transactional workload path and the reconciler, so it is left untouched on update.
func (r *postgresRepository) SaveStaff(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (id, guild_id, on_duty, on_duty_since, specializations, active_count, updated_at)
        VALUES ($1,$2,$3,$4,$5,0,$6)
        ON CONFLICT (id) DO UPDATE SET guild_id=EXCLUDED.guild_id, on_duty=EXCLUDED.on_duty,
            on_duty_since=EXCLUDED.on_duty_since, specializations=EXCLUDED.specializations,
            updated_at=EXCLUDED.updated_at
        RETURNING active_count`
	specializations := staff.Specializations
	if specializations == nil {
		specializations = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		staff.ID,
		staff.GuildID,
		staff.OnDuty,
		staff.OnDutySince,
		specializations,
		staff.UpdatedAt,
	).Scan(&staff.ActiveCount)
}

func (r *postgresRepository) SaveStaffWorkload(ctx context.Context, id string, count int) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE staff_members SET active_count=$1 WHERE id=$2`, count, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReconcileWorkload locks every staff row before counting. A ticket transaction
// that already adjusted a counter is waited for and then counted; one that has not
// yet reached its counter update applies its delta on top of the rewritten value.
func (r *postgresRepository) ReconcileWorkload(ctx context.Context) (int, []WorkloadCorrection, error) {
	var (
		checked     int
		corrections []WorkloadCorrection
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		checked = 0
		corrections = nil

		rows, err := tx.Query(ctx, `SELECT id, active_count FROM staff_members ORDER BY id FOR UPDATE`)
		if err != nil {
			return err
		}
		var stored []WorkloadCorrection
		for rows.Next() {
			var row WorkloadCorrection
			if err := rows.Scan(&row.StaffID, &row.Stored); err != nil {
				rows.Close()
				return err
			}
			stored = append(stored, row)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		const countQuery = `
            SELECT assigned_staff, COUNT(*) FROM tickets
            WHERE assigned_staff IS NOT NULL AND state IN ($1, $2)
            GROUP BY assigned_staff`
		rows, err = tx.Query(ctx, countQuery, domain.TicketStateClaimed, domain.TicketStatePending)
		if err != nil {
			return err
		}
		actual := make(map[string]int)
		for rows.Next() {
			var (
				staffID string
				count   int
			)
			if err := rows.Scan(&staffID, &count); err != nil {
				rows.Close()
				return err
			}
			actual[staffID] = count
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, row := range stored {
			checked++
			row.Actual = actual[row.StaffID]
			if row.Stored == row.Actual {
				continue
			}
			if _, err := tx.Exec(ctx, `UPDATE staff_members SET active_count=$1 WHERE id=$2`, row.Actual, row.StaffID); err != nil {
				return err
			}
			corrections = append(corrections, row)
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return checked, corrections, nil
}

func (t *postgresTx) AdjustStaffWorkload(ctx context.Context, staffID string, delta int) error {
	const query = `UPDATE staff_members SET active_count = active_count + $1 WHERE id=$2`
	cmd, err := t.q.Exec(ctx, query, delta, staffID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
