package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// DayRepository is the festival and day registry.
type DayRepository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewDayRepository constructs a DayRepository.
func NewDayRepository(db *pgxpool.Pool, lockTimeout time.Duration) *DayRepository {
	return &DayRepository{db: db, lockTimeout: lockTimeout}
}

// Festival returns the festival, or ErrFestivalNotFound before one is saved.
func (r *DayRepository) Festival(ctx context.Context) (*model.Festival, error) {
	var f model.Festival
	err := r.db.QueryRow(ctx,
		`SELECT id, name, location, start_date, end_date, price, capacity_per_day, created_at, updated_at
		 FROM festivals
		 ORDER BY created_at ASC
		 LIMIT 1`,
	).Scan(&f.ID, &f.Name, &f.Location, &f.StartDate, &f.EndDate, &f.Price, &f.CapacityPerDay, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrFestivalNotFound
		}
		return nil, fmt.Errorf("get festival: %w", err)
	}
	return &f, nil
}

// SaveFestival upserts the festival.
func (r *DayRepository) SaveFestival(ctx context.Context, f *model.Festival) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO festivals (id, name, location, start_date, end_date, price, capacity_per_day, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     location = EXCLUDED.location,
		     start_date = EXCLUDED.start_date,
		     end_date = EXCLUDED.end_date,
		     price = EXCLUDED.price,
		     capacity_per_day = EXCLUDED.capacity_per_day,
		     updated_at = EXCLUDED.updated_at`,
		f.ID, f.Name, f.Location, f.StartDate, f.EndDate, f.Price, f.CapacityPerDay, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save festival: %w", err)
	}
	return nil
}

const dayWithCountQuery = `
	SELECT d.id, d.festival_id, d.date, d.theme, d.menu, d.capacity,
	       COUNT(b.id) AS active_count,
	       d.created_at, d.updated_at
	FROM days d
	LEFT JOIN bookings b
	    ON b.day_id = d.id
	    AND b.status = 'active'
	WHERE d.deleted_at IS NULL`

func scanDay(row pgx.Row) (*model.Day, error) {
	var d model.Day
	if err := row.Scan(&d.ID, &d.FestivalID, &d.Date, &d.Theme, &d.Menu, &d.Capacity,
		&d.ActiveCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDays returns live days ordered by date with their active counts.
func (r *DayRepository) ListDays(ctx context.Context) ([]model.Day, error) {
	rows, err := r.db.Query(ctx, dayWithCountQuery+`
		GROUP BY d.id
		ORDER BY d.date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []model.Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}

// GetDay returns a single live day or ErrDayNotFound.
func (r *DayRepository) GetDay(ctx context.Context, id string) (*model.Day, error) {
	d, err := scanDay(r.db.QueryRow(ctx, dayWithCountQuery+`
		AND d.id = $1
		GROUP BY d.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDayNotFound
		}
		return nil, fmt.Errorf("get day: %w", err)
	}
	return d, nil
}

// CreateDay inserts a new day.
func (r *DayRepository) CreateDay(ctx context.Context, d *model.Day) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO days (id, festival_id, date, theme, menu, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.FestivalID, d.Date, d.Theme, d.Menu, d.Capacity, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert day: %w", translate(err))
	}
	return nil
}

// UpdateDay applies u under the day's row lock.
func (r *DayRepository) UpdateDay(ctx context.Context, id string, u model.DayUpdate, confirm bool, now time.Time) (*model.Day, error) {
	var out *model.Day
	err := withTx(ctx, r.db, r.lockTimeout, func(tx pgx.Tx) error {
		days, err := lockDays(ctx, tx, id)
		if err != nil {
			return err
		}
		d := days[id]

		n, err := activeCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Capacity != nil && *u.Capacity < n && !confirm {
			return fmt.Errorf("%w: day %s has %d active bookings, requested capacity %d",
				model.ErrCapacityBelowActiveBookings, id, n, *u.Capacity)
		}

		if u.Date != nil {
			d.Date = *u.Date
		}
		if u.Theme != nil {
			d.Theme = *u.Theme
		}
		if u.Menu != nil {
			d.Menu = *u.Menu
		}
		if u.Capacity != nil {
			d.Capacity = *u.Capacity
		}
		d.UpdatedAt = now
		d.ActiveCount = n

		_, err = tx.Exec(ctx,
			`UPDATE days SET date = $2, theme = $3, menu = $4, capacity = $5, updated_at = $6 WHERE id = $1`,
			d.ID, d.Date, d.Theme, d.Menu, d.Capacity, d.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update day: %w", translate(err))
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDay removes a day, cancelling its active bookings when cascade is set.
// A day with booking history is soft-deleted so the history stays valid.
func (r *DayRepository) DeleteDay(ctx context.Context, id string, cascade bool, now time.Time) ([]model.Booking, error) {
	var cancelled []model.Booking
	err := withTx(ctx, r.db, r.lockTimeout, func(tx pgx.Tx) error {
		if _, err := lockDays(ctx, tx, id); err != nil {
			return err
		}

		n, err := activeCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 && !cascade {
			return fmt.Errorf("%w: %d on day %s", model.ErrDayHasActiveBookings, n, id)
		}

		rows, err := tx.Query(ctx,
			`UPDATE bookings SET status = 'cancelled', updated_at = $2
			 WHERE day_id = $1 AND status = 'active'
			 RETURNING `+bookingColumns,
			id, now,
		)
		if err != nil {
			return fmt.Errorf("cancel day bookings: %w", err)
		}
		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan cancelled booking: %w", err)
			}
			cancelled = append(cancelled, *b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("cancel day bookings: %w", err)
		}

		var history bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bookings WHERE day_id = $1)`, id,
		).Scan(&history); err != nil {
			return fmt.Errorf("check booking history: %w", err)
		}

		if history {
			_, err = tx.Exec(ctx, `UPDATE days SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, now)
		} else {
			_, err = tx.Exec(ctx, `DELETE FROM days WHERE id = $1`, id)
		}
		if err != nil {
			return fmt.Errorf("delete day: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
