// Package server wires the identity server together: configuration, the
// PostgreSQL store and its migrations, the domain services, and the HTTP and
// gRPC listeners. It also owns graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/passwords"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophidentity/internal/server/rest"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"

	gs "github.com/dmitrijs2005/gophidentity/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	issuer      *auth.Issuer
	userService *services.UserService
	roleService *services.RoleService
}

// NewLogger returns the JSON slog logger used by the server at the
// configured level. Unknown levels fall back to info.
func NewLogger(level string) logging.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

// NewApp opens the database, applies migrations, builds the services and
// seeds the admin role and the configured bootstrap admin.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		SecretKey:        []byte(c.SecretKey),
		Validity:         c.TokenValidityDuration,
		CompatClaimName:  c.CompatClaimName,
		CompatClaimValue: c.CompatClaimValue,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	hasher := passwords.NewBcryptHasher(c.BcryptCost)
	policy := passwords.Policy{MinLength: c.PasswordMinLength, DisallowUserName: c.PasswordDisallowUserName}

	verifier := services.NewCredentialVerifier(db, rm, hasher, c, logger)
	rs := services.NewRoleService(db, rm, logger)
	us := services.NewUserService(db, rm, verifier, rs, issuer, hasher, policy, logger)

	if err := us.BootstrapAdmin(ctx, c.BootstrapAdminUser, c.BootstrapAdminPassword, c.AdminRole); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap admin error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, issuer: issuer, userService: us, roleService: rs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigs
		app.logger.Info(context.Background(), "Signal received, shutting down", "signal", sig.String())
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.issuer, app.roleService, app.db.PingContext)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := rest.NewHandler(app.userService, app.roleService, app.issuer, app.config, app.logger).
		WithReadinessProbe(app.db.PingContext)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: rest.NewRouter(h),
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run serves HTTP and gRPC until ctx is cancelled, a signal arrives or one
// of the listeners fails. The database is closed once both have stopped.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
