// Package repository implements the festival registry, booking ledger and user
// directory on PostgreSQL. It uses pgx directly (no ORM).
//
// ─────────────────────────────────────────────────────────────────────────────
// LOCKING MODEL
// ─────────────────────────────────────────────────────────────────────────────
//
// Every capacity decision runs inside one transaction that first takes the
// row lock of each affected day with SELECT … FOR UPDATE, then counts the
// day's active bookings, then writes. Concurrent transactions on the same day
// queue on that lock, so "read count, compare, write" cannot interleave.
//
// Operations touching two days (a move) lock both rows in a single statement
// ordered by id, so two users swapping days in opposite directions always
// acquire in the same order and cannot deadlock.
//
// Lock order is always days first, then the booking row.
//
// The one-active-booking-per-user rule is a partial unique index, so two
// concurrent creates for the same user on different days cannot both commit.
//
// Each transaction sets lock_timeout; a wait that exceeds it surfaces as
// model.ErrLockTimeout and is retried by the service layer.
// ─────────────────────────────────────────────────────────────────────────────
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

const (
	constraintOneActivePerUser = "bookings_one_active_per_user"
	constraintDayDate          = "days_festival_date_live"
	constraintDayPK            = "days_pkey"
	constraintUserEmail        = "users_email_lower"
	constraintUserGoogleID     = "users_google_id_key"
)

const defaultLockTimeout = 2 * time.Second

// withTx runs fn in a transaction with lock_timeout applied. The transaction
// commits only if fn returns nil; any error, including a cancelled context,
// rolls everything back.
func withTx(ctx context.Context, db *pgxpool.Pool, lockTimeout time.Duration, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// No-op after a successful commit.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(tx); err != nil {
		return translate(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

// translate maps PostgreSQL errors onto domain errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "55P03", "40P01", "40001": // lock_not_available, deadlock_detected, serialization_failure
		return fmt.Errorf("%w: %s", model.ErrLockTimeout, pgErr.Message)
	case "23505":
		switch pgErr.ConstraintName {
		case constraintOneActivePerUser:
			return model.ErrAlreadyBooked
		case constraintDayDate:
			return model.ErrDayDateTaken
		case constraintDayPK:
			return fmt.Errorf("%w: day already exists", model.ErrValidation)
		case constraintUserEmail, constraintUserGoogleID:
			return fmt.Errorf("%w: user already registered", model.ErrValidation)
		}
	}
	return err
}

// lockDays takes the row locks of the given live days in ascending id order
// and returns them keyed by id. A missing day fails with ErrDayNotFound.
func lockDays(ctx context.Context, tx pgx.Tx, ids ...string) (map[string]*model.Day, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, festival_id, date, theme, menu, capacity, created_at, updated_at
		 FROM days
		 WHERE id = ANY($1) AND deleted_at IS NULL
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock days: %w", err)
	}
	defer rows.Close()

	locked := make(map[string]*model.Day, len(ids))
	for rows.Next() {
		var d model.Day
		if err := rows.Scan(&d.ID, &d.FestivalID, &d.Date, &d.Theme, &d.Menu, &d.Capacity, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan locked day: %w", err)
		}
		locked[d.ID] = &d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock days: %w", err)
	}

	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrDayNotFound, id)
		}
	}
	return locked, nil
}

// activeCount counts a day's active bookings inside tx. It is only meaningful
// while the day's row lock is held.
func activeCount(ctx context.Context, tx pgx.Tx, dayID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE day_id = $1 AND status = 'active'`,
		dayID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return n, nil
}

const bookingColumns = `id, user_id, day_id, festival_id, status, price, booking_date, created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.DayID, &b.FestivalID, &status, &b.Price,
		&b.BookingDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}
