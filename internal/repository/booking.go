package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// BookingRepository is the booking ledger.
type BookingRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool, lockTimeout time.Duration) *BookingRepository {
	return &BookingRepository{db: db, lockTimeout: lockTimeout}
}

// Create books b.DayID for b.UserID inside one transaction.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking, p model.AllocPolicy) error {
	return withTx(ctx, r.db, r.lockTimeout, func(tx pgx.Tx) error {
		// ── Step 1: lock the day row. ───────────────────────────────────────
		days, err := lockDays(ctx, tx, b.DayID)
		if err != nil {
			return err
		}
		day := days[b.DayID]

		// ── Step 2: one active booking per user. ────────────────────────────
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE user_id = $1 AND status = 'active')`,
			b.UserID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check active booking: %w", err)
		}
		if exists {
			return model.ErrAlreadyBooked
		}

		// ── Step 3: capacity against the live count. ────────────────────────
		n, err := activeCount(ctx, tx, b.DayID)
		if err != nil {
			return err
		}
		if !p.AllowOverCapacity && n >= day.Capacity {
			return fmt.Errorf("%w: %d of %d slots taken", model.ErrCapacityExceeded, n, day.Capacity)
		}

		// ── Step 4: insert. The partial unique index backs step 2. ──────────
		b.Status = model.BookingStatusActive
		b.FestivalID = day.FestivalID
		_, err = tx.Exec(ctx,
			`INSERT INTO bookings (`+bookingColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			b.ID, b.UserID, b.DayID, b.FestivalID, string(b.Status), b.Price,
			b.BookingDate, b.CreatedAt, b.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", translate(err))
		}
		return nil
	})
}

// Move reassigns the user's active booking to dayID.
func (r *BookingRepository) Move(ctx context.Context, userID, dayID string, p model.AllocPolicy, now time.Time) (*model.Booking, error) {
	var out *model.Booking
	err := withTx(ctx, r.db, r.lockTimeout, func(tx pgx.Tx) error {
		cur, err := activeByUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		days, err := lockDays(ctx, tx, cur.DayID, dayID)
		if err != nil {
			return err
		}

		b, err := lockBooking(ctx, tx, cur.ID)
		if err != nil {
			return err
		}
		if !b.IsActive() || b.DayID != cur.DayID {
			return fmt.Errorf("%w: booking %s", model.ErrConcurrentUpdate, b.ID)
		}
		if dayID == cur.DayID {
			out = b
			return nil
		}

		n, err := activeCount(ctx, tx, dayID)
		if err != nil {
			return err
		}
		dest := days[dayID]
		if !p.AllowOverCapacity && n >= dest.Capacity {
			return fmt.Errorf("%w: %d of %d slots taken", model.ErrCapacityExceeded, n, dest.Capacity)
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET day_id = $2, festival_id = $3, updated_at = $4 WHERE id = $1`,
			b.ID, dayID, dest.FestivalID, now,
		)
		if err != nil {
			return fmt.Errorf("move booking: %w", err)
		}
		b.DayID = dayID
		b.FestivalID = dest.FestivalID
		b.UpdatedAt = now
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel transitions the user's active booking to cancelled.
func (r *BookingRepository) Cancel(ctx context.Context, userID string, now time.Time) (*model.Booking, error) {
	var out *model.Booking
	err := withTx(ctx, r.db, r.lockTimeout, func(tx pgx.Tx) error {
		cur, err := activeByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if _, err := lockDays(ctx, tx, cur.DayID); err != nil {
			return err
		}

		b, err := lockBooking(ctx, tx, cur.ID)
		if err != nil {
			return err
		}
		if !b.IsActive() || b.DayID != cur.DayID {
			return fmt.Errorf("%w: booking %s", model.ErrConcurrentUpdate, b.ID)
		}

		_, err = tx.Exec(ctx,
			`UPDATE bookings SET status = 'cancelled', updated_at = $2 WHERE id = $1`,
			b.ID, now,
		)
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		b.Status = model.BookingStatusCancelled
		b.UpdatedAt = now
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveByUser returns the user's active booking or ErrNoActiveBooking.
func (r *BookingRepository) ActiveByUser(ctx context.Context, userID string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND status = 'active'`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoActiveBooking
		}
		return nil, fmt.Errorf("get active booking: %w", err)
	}
	return b, nil
}

// List returns bookings ordered by booking date.
func (r *BookingRepository) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.DayID != "" {
		args = append(args, f.DayID)
		where = append(where, fmt.Sprintf("day_id = $%d", len(args)))
	}
	if !f.IncludeCancelled {
		where = append(where, "status = 'active'")
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY booking_date ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// activeByUser reads the user's active booking without locking it; the
// caller locks the day first and then re-reads the row with lockBooking.
func activeByUser(ctx context.Context, tx pgx.Tx, userID string) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND status = 'active'`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNoActiveBooking
		}
		return nil, fmt.Errorf("get active booking: %w", err)
	}
	return b, nil
}

func lockBooking(ctx context.Context, tx pgx.Tx, id string) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %s", model.ErrConcurrentUpdate, id)
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}
	return b, nil
}
