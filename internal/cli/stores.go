package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
	"github.com/Shivanand-hulikatti/festival-booking/internal/database"
	"github.com/Shivanand-hulikatti/festival-booking/internal/memstore"
	"github.com/Shivanand-hulikatti/festival-booking/internal/repository"
	"github.com/Shivanand-hulikatti/festival-booking/internal/seed"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

type userStore interface {
	service.UserDirectory
	auth.UserStore
}

type registryStore interface {
	service.Registry
	seed.Registry
}

// stores is the storage backend selected by STORE_DRIVER.
type stores struct {
	registry registryStore
	ledger   service.Ledger
	users    userStore
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, migrate bool, log *slog.Logger) (*stores, error) {
	switch cfg.Store {
	case config.DriverMemory:
		m := memstore.New(memstore.WithLockTimeout(cfg.Booking.LockTimeout))
		log.Warn("using in-memory store, data is lost on exit")
		return &stores{registry: m, ledger: m, users: m, close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := openPostgres(ctx, cfg, migrate, log)
		if err != nil {
			return nil, err
		}
		return &stores{
			registry: repository.NewDayRepository(pool, cfg.Booking.LockTimeout),
			ledger:   repository.NewBookingRepository(pool, cfg.Booking.LockTimeout),
			users:    repository.NewUserRepository(pool),
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, migrate bool, log *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}
	return pool, nil
}
