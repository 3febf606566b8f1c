package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/festival-booking/internal/database"
	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

type pgFixture struct {
	pool     *pgxpool.Pool
	days     *DayRepository
	users    *UserRepository
	bookings *service.BookingService
}

// newPGFixture connects to TEST_DATABASE_URL, migrates, wipes every table
// and seeds a festival with one day per capacity. Tests are skipped when the
// variable is unset.
func newPGFixture(t *testing.T, capacities ...int) *pgFixture {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE bookings, users, days, festivals CASCADE`)
	require.NoError(t, err)

	days := NewDayRepository(pool, 2*time.Second)
	users := NewUserRepository(pool)
	require.NoError(t, days.SaveFestival(ctx, &model.Festival{
		ID:             "fest",
		Name:           "Food & Friends Festival",
		StartDate:      time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 11, 7, 0, 0, 0, 0, time.UTC),
		Price:          50,
		CapacityPerDay: 6,
	}))
	for i, c := range capacities {
		require.NoError(t, days.CreateDay(ctx, &model.Day{
			ID:         fmt.Sprint(i + 1),
			FestivalID: "fest",
			Date:       time.Date(2024, 11, 3+i, 0, 0, 0, 0, time.UTC),
			Theme:      fmt.Sprintf("Day %d", i+1),
			Capacity:   c,
		}))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := NewBookingRepository(pool, 2*time.Second)
	return &pgFixture{
		pool:     pool,
		days:     days,
		users:    users,
		bookings: service.NewBookingService(ledger, days, log, service.Options{LockRetries: 5, RetryBackoff: 5 * time.Millisecond}),
	}
}

func (f *pgFixture) addUsers(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%02d", i)
		require.NoError(t, f.users.CreateUser(context.Background(), &model.User{
			ID:    ids[i],
			Email: fmt.Sprintf("user%02d@example.com", i),
			Name:  fmt.Sprintf("User %02d", i),
		}))
	}
	return ids
}

func TestPostgres_ConcurrentLastSlots(t *testing.T) {
	f := newPGFixture(t, 6)
	users := f.addUsers(t, 30)

	var g errgroup.Group
	results := make([]error, len(users))
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			_, results[i] = f.bookings.CreateBooking(context.Background(), u, "1")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrCapacityExceeded)
	}
	assert.Equal(t, 6, ok)

	d, err := f.days.GetDay(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, 6, d.ActiveCount)
}

func TestPostgres_OneActiveBookingPerUser(t *testing.T) {
	f := newPGFixture(t, 6, 6)
	users := f.addUsers(t, 1)
	ctx := context.Background()

	var g errgroup.Group
	errs := make([]error, 2)
	for i, day := range []string{"1", "2"} {
		i, day := i, day
		g.Go(func() error {
			_, errs[i] = f.bookings.CreateBooking(ctx, users[0], day)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, model.ErrAlreadyBooked)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPostgres_MoveAndCancel(t *testing.T) {
	f := newPGFixture(t, 1, 1)
	users := f.addUsers(t, 2)
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, users[0], "1")
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, users[1], "2")
	require.NoError(t, err)

	_, err = f.bookings.UpdateBooking(ctx, users[0], "2")
	assert.ErrorIs(t, err, model.ErrCapacityExceeded)

	require.NoError(t, f.bookings.CancelBooking(ctx, users[1]))
	moved, err := f.bookings.UpdateBooking(ctx, users[0], "2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, "2", moved.DayID)

	d1, err := f.days.GetDay(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 0, d1.ActiveCount)

	err = f.bookings.CancelBooking(ctx, users[1])
	assert.ErrorIs(t, err, model.ErrNoActiveBooking)
}

func TestPostgres_DayLifecycle(t *testing.T) {
	f := newPGFixture(t, 6, 6)
	users := f.addUsers(t, 5)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, u := range users {
		_, err := f.bookings.CreateBooking(ctx, u, "1")
		require.NoError(t, err)
	}

	three := 3
	_, err := f.days.UpdateDay(ctx, "1", model.DayUpdate{Capacity: &three}, false, now)
	assert.ErrorIs(t, err, model.ErrCapacityBelowActiveBookings)

	d, err := f.days.UpdateDay(ctx, "1", model.DayUpdate{Capacity: &three}, true, now)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Capacity)
	assert.Equal(t, 5, d.ActiveCount)

	taken := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	_, err = f.days.UpdateDay(ctx, "1", model.DayUpdate{Date: &taken}, false, now)
	assert.ErrorIs(t, err, model.ErrDayDateTaken)

	_, err = f.days.DeleteDay(ctx, "1", false, now)
	assert.ErrorIs(t, err, model.ErrDayHasActiveBookings)

	cancelled, err := f.days.DeleteDay(ctx, "1", true, now)
	require.NoError(t, err)
	assert.Len(t, cancelled, 5)

	_, err = f.days.GetDay(ctx, "1")
	assert.ErrorIs(t, err, model.ErrDayNotFound)

	// The soft-deleted day frees its date.
	require.NoError(t, f.days.CreateDay(ctx, &model.Day{
		ID: "replacement", FestivalID: "fest", Theme: "Again", Capacity: 6,
		Date: time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
	}))

	_, err = f.days.DeleteDay(ctx, "2", false, now)
	require.NoError(t, err)
	days, err := f.days.ListDays(ctx)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "replacement", days[0].ID)
}

func TestPostgres_Users(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.CreateUser(ctx, &model.User{ID: "u1", GoogleID: "g1", Email: "Ann@Example.com", Name: "Ann"}))

	u, err := f.users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = f.users.GetByGoogleID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = f.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	name := "Ann B"
	u, err = f.users.UpdateProfile(ctx, "u1", model.UserUpdate{Name: &name}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.Name)
}
