package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach-dashboard/internal/outcome"
	"outreach-dashboard/pkg/utils"
)

// NOTE: This repository assumes the tables from internal/schema exist:
// - contacts
// - call_logs (append-only, FK to contacts ON DELETE CASCADE)

const contactColumns = `id, name, phone_number, services_offered, bill_or_payment, last_outcome, next_call_date, transcript, created_at, updated_at`

// PostgresRepo implements Repository with database/sql (pgx stdlib driver).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(r rowScanner) (Contact, error) {
	var (
		c          Contact
		next       sql.NullTime
		transcript sql.NullString
	)
	if err := r.Scan(
		&c.ID,
		&c.Name,
		&c.PhoneNumber,
		&c.ServicesOffered,
		&c.BillOrPayment,
		&c.LastOutcome,
		&next,
		&transcript,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Contact{}, err
	}
	if next.Valid {
		t := next.Time
		c.NextCallDate = &t
	}
	if transcript.Valid {
		s := transcript.String
		c.Transcript = &s
	}
	return c, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, rows []Contact) (int, error) {
	const q = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING
`
	inserted := 0
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range rows {
			res, err := tx.ExecContext(ctx, q,
				c.ID,
				c.Name,
				c.PhoneNumber,
				c.ServicesOffered,
				c.BillOrPayment,
				string(c.LastOutcome),
				c.NextCallDate,
				c.Transcript,
				c.CreatedAt,
				c.UpdatedAt,
			)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`
	c, err := scanContact(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, p Patch, now time.Time) (Contact, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.PhoneNumber != nil {
		set("phone_number", *p.PhoneNumber)
	}
	if p.ServicesOffered != nil {
		set("services_offered", *p.ServicesOffered)
	}
	if p.BillOrPayment != nil {
		set("bill_or_payment", *p.BillOrPayment)
	}
	if p.ClearNextCallDate {
		set("next_call_date", nil)
	} else if p.NextCallDate != nil {
		set("next_call_date", *p.NextCallDate)
	}
	if p.LastOutcome != nil {
		set("last_outcome", string(*p.LastOutcome))
	}
	if p.Transcript != nil {
		set("transcript", *p.Transcript)
	}
	set("updated_at", now)

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE contacts SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), contactColumns)

	c, err := scanContact(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return utils.RequireAffected(res, ErrNotFound)
}

func (r *PostgresRepo) List(ctx context.Context, from, to *time.Time) ([]Contact, error) {
	where, args := timeWindow("next_call_date", from, to)
	q := `SELECT ` + contactColumns + ` FROM contacts` + where + ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetOutcome(ctx context.Context, id string, o outcome.Outcome, now time.Time) error {
	const q = `UPDATE contacts SET last_outcome = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, string(o), now)
	if err != nil {
		return err
	}
	return utils.RequireAffected(res, ErrNotFound)
}

func (r *PostgresRepo) ApplyOutcome(ctx context.Context, u OutcomeUpdate, entry CallLog) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// COALESCE keeps the stored date when no reschedule was derived.
		const updateContact = `
UPDATE contacts
SET last_outcome = $2,
    transcript = $3,
    next_call_date = COALESCE($4::timestamptz, next_call_date),
    updated_at = $5
WHERE id = $1
`
		res, err := tx.ExecContext(ctx, updateContact, u.ContactID, string(u.Outcome), u.Transcript, u.NextCallDate, u.UpdatedAt)
		if err != nil {
			return err
		}
		if err := utils.RequireAffected(res, ErrNotFound); err != nil {
			return err
		}

		const insertLog = `
INSERT INTO call_logs (id, contact_id, outcome, transcript, duration_seconds, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
		_, err = tx.ExecContext(ctx, insertLog,
			entry.ID,
			entry.ContactID,
			string(entry.Outcome),
			entry.Transcript,
			entry.DurationSeconds,
			entry.CreatedAt,
		)
		return err
	})
}

const logViewSelect = `
SELECT l.id, l.contact_id, l.outcome, l.transcript, l.duration_seconds, l.created_at, c.name
FROM call_logs l
JOIN contacts c ON c.id = l.contact_id`

func (r *PostgresRepo) RecentLogs(ctx context.Context, limit int) ([]CallLogView, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	return r.queryLogs(ctx, logViewSelect+` ORDER BY l.created_at DESC LIMIT $1`, limit)
}

func (r *PostgresRepo) LogsBetween(ctx context.Context, from, to *time.Time) ([]CallLogView, error) {
	where, args := timeWindow("l.created_at", from, to)
	return r.queryLogs(ctx, logViewSelect+where+` ORDER BY l.created_at DESC`, args...)
}

func (r *PostgresRepo) DeleteLogs(ctx context.Context, from, to *time.Time) (int, error) {
	where, args := timeWindow("created_at", from, to)
	res, err := r.db.ExecContext(ctx, `DELETE FROM call_logs`+where, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *PostgresRepo) queryLogs(ctx context.Context, q string, args ...any) ([]CallLogView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallLogView, 0)
	for rows.Next() {
		var (
			v   CallLogView
			dur sql.NullInt64
		)
		if err := rows.Scan(
			&v.ID,
			&v.ContactID,
			&v.Outcome,
			&v.Transcript,
			&dur,
			&v.CreatedAt,
			&v.ContactName,
		); err != nil {
			return nil, err
		}
		if dur.Valid {
			d := int(dur.Int64)
			v.DurationSeconds = &d
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// timeWindow builds a half-open [from, to) filter on col.
func timeWindow(col string, from, to *time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("%s >= $%d", col, len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("%s < $%d", col, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
