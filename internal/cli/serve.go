package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
	"github.com/Shivanand-hulikatti/festival-booking/internal/handler"
	"github.com/Shivanand-hulikatti/festival-booking/internal/seed"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Migrate  bool
	SeedFile string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

With STORE_DRIVER=memory the store starts empty and is seeded with the
built-in festival (or --seed-file) before serving.

Example:
  festival serve
  STORE_DRIVER=memory festival serve --seed-file ./festival.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", true, "apply database migrations on start (postgres only)")
	cmd.Flags().StringVar(&opts.SeedFile, "seed-file", "", "seed YAML applied on start")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, log, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ───────────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, opts.Migrate, log)
	if err != nil {
		return err
	}
	defer st.close()

	if opts.SeedFile != "" || cfg.Store == config.DriverMemory {
		doc, err := loadSeed(opts.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, doc, st.registry, st.users, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	// ── 2. Identity ──────────────────────────────────────────────────────────
	authSvc, cleanup, err := newAuthService(ctx, cfg, st.users, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// ── 3. Wire up layers ────────────────────────────────────────────────────
	svcOpts := service.Options{
		LockRetries:  cfg.Booking.LockRetries,
		RetryBackoff: cfg.Booking.RetryBackoff,
	}
	bookings := service.NewBookingService(st.ledger, st.registry, log, svcOpts)
	registry := service.NewRegistryService(st.registry, log, svcOpts)
	admin := service.NewAdminService(bookings, registry, st.ledger, st.users, log)

	router := handler.NewRouter(handler.Services{
		Auth:     authSvc,
		Bookings: bookings,
		Registry: registry,
		Admin:    admin,
	}, cfg.HTTP, log)

	// ── 4. Start server with graceful shutdown ───────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newAuthService(ctx context.Context, cfg *config.Config, users auth.UserStore, log *slog.Logger) (*auth.Service, func(), error) {
	var (
		revoker auth.Revoker
		closers []func()
	)
	if cfg.Redis.URL != "" {
		client, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		revoker = auth.NewRedisRevoker(client)
		closers = append(closers, func() { _ = client.Close() })
	} else {
		log.Warn("REDIS_URL not set, logout will not revoke tokens")
	}

	var google auth.IDTokenVerifier
	if cfg.Auth.GoogleClientID != "" {
		v, err := auth.NewGoogleVerifier(cfg.Auth.GoogleJWKSURL, cfg.Auth.GoogleClientID, log)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		google = v
		closers = append(closers, v.Close)
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, revoker)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return auth.NewService(users, tokens, google, log), cleanup, nil
}

func loadSeed(path string) (*seed.Document, error) {
	if path == "" {
		return seed.Default()
	}
	doc, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
