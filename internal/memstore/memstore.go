// Package memstore is an in-memory implementation of the festival registry,
// the booking ledger and the user directory. It backs the server's memory
// driver and the service tests.
//
// Each day owns a weighted semaphore of size one that acts as its exclusive
// lock. Operations touching several days acquire them in ascending id order.
// The map mutex only guards record memory and is never held while waiting on
// a day lock.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

const defaultLockTimeout = 2 * time.Second

type dayEntry struct {
	day     model.Day
	lock    *semaphore.Weighted
	deleted bool
}

// Store holds all state in process memory.
type Store struct {
	mu           sync.RWMutex
	festival     *model.Festival
	days         map[string]*dayEntry
	bookings     map[string]*model.Booking
	activeByUser map[string]string
	users        map[string]*model.User

	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long an operation waits for a day lock before
// failing with model.ErrLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		days:         make(map[string]*dayEntry),
		bookings:     make(map[string]*model.Booking),
		activeByUser: make(map[string]string),
		users:        make(map[string]*model.User),
		lockTimeout:  defaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockDays acquires the exclusive locks of the given days in ascending id
// order and returns a function releasing them. Unknown or deleted days fail
// with model.ErrDayNotFound.
func (s *Store) lockDays(ctx context.Context, ids ...string) (func(), error) {
	ids = uniqueSorted(ids)

	s.mu.RLock()
	locks := make([]*semaphore.Weighted, 0, len(ids))
	for _, id := range ids {
		e, ok := s.days[id]
		if !ok || e.deleted {
			s.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", model.ErrDayNotFound, id)
		}
		locks = append(locks, e.lock)
	}
	s.mu.RUnlock()

	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	held := 0
	release := func() {
		for i := held - 1; i >= 0; i-- {
			locks[i].Release(1)
		}
	}
	for i, l := range locks {
		if err := l.Acquire(lctx, 1); err != nil {
			release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: day %s", model.ErrLockTimeout, ids[i])
		}
		held++
	}

	// A delete may have won the race for the lock.
	s.mu.RLock()
	for i, id := range ids {
		if e, ok := s.days[id]; !ok || e.deleted || e.lock != locks[i] {
			s.mu.RUnlock()
			release()
			return nil, fmt.Errorf("%w: %s", model.ErrDayNotFound, id)
		}
	}
	s.mu.RUnlock()

	return release, nil
}

// activeCount counts active bookings on a day. Callers hold s.mu.
func (s *Store) activeCount(dayID string) int {
	n := 0
	for _, b := range s.bookings {
		if b.DayID == dayID && b.IsActive() {
			n++
		}
	}
	return n
}

func uniqueSorted(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
