// Package server initializes and runs the gophauth server: it builds the
// storage backend, the authentication engine and its collaborators, then
// serves the HTTP and gRPC transports until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/hasher"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/lockout"
	"github.com/dmitrijs2005/gophauth/internal/server/notify"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/revocation"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/telemetry"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const serviceName = "gophauth"

type App struct {
	config  *config.Config
	logger  logging.Logger
	engine  *services.AuthService
	authn   *auth.Authenticator
	closers []func(context.Context) error
}

// NewApp wires every component described by c. Resources opened here are
// released when Run returns, or by Close if Run is never called.
func NewApp(ctx context.Context, c *config.Config, l logging.Logger) (_ *App, err error) {
	app := &App{config: c, logger: l}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, c.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry init error: %w", err)
	}
	app.closers = append(app.closers, shutdownTracing)

	db, repos, err := app.initStorage(ctx)
	if err != nil {
		return nil, err
	}

	h, err := hasher.NewBcrypt(c.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), auth.WithIssuer(serviceName))
	if err != nil {
		return nil, fmt.Errorf("token codec init error: %w", err)
	}

	notifier, err := app.initNotifier(ctx)
	if err != nil {
		return nil, err
	}

	deps := services.Deps{
		DB:            db,
		Repos:         repos,
		Hasher:        h,
		Tokens:        codec,
		Notifier:      notifier,
		Policy:        lockout.Policy{Threshold: c.LockoutThreshold, Duration: c.LockoutDuration},
		TokenTTL:      c.TokenTTL,
		ResetTokenTTL: c.ResetTokenTTL,
		NotifyTimeout: c.NotifyTimeout,
		Logger:        l,
	}

	app.authn = auth.NewAuthenticator(codec, nil)
	if c.RedisAddr != "" {
		rdb, err := revocation.NewRedisClient(ctx, c.RedisAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return rdb.Close() })

		denylist := revocation.NewRedisDenylist(rdb, serviceName)
		deps.Revoker = denylist
		app.authn = auth.NewAuthenticator(codec, denylist)
		l.Info(ctx, "Token revocation enabled", "redis", c.RedisAddr)
	}

	app.engine, err = services.NewAuthService(deps)
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) initStorage(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, error) {
	if app.config.Storage == config.StorageMemory {
		app.logger.Warn(ctx, "Using in-memory storage, accounts are lost on restart")
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, func(context.Context) error { return db.Close() })

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}
	app.logger.Info(ctx, "Database migrations completed")

	return db, m, nil
}

func (app *App) initNotifier(ctx context.Context) (notify.Notifier, error) {
	if app.config.Notifier != config.NotifierS3 {
		return notify.NewLogNotifier(app.logger), nil
	}

	n, err := notify.NewS3Notifier(ctx, notify.S3Config{
		AccessKey:    app.config.S3AccessKey,
		SecretKey:    app.config.S3SecretKey,
		Bucket:       app.config.S3Bucket,
		Region:       app.config.S3Region,
		BaseEndpoint: app.config.S3BaseEndpoint,
	}, app.logger)
	if err != nil {
		return nil, fmt.Errorf("notifier init error: %w", err)
	}
	return n, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.engine, app.authn, app.config.CORSOrigins)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.engine, app.authn)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves both transports until ctx is cancelled, a termination signal
// arrives or one of the servers fails, then releases all resources.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(context.WithoutCancel(ctx)); err != nil {
		app.logger.Error(ctx, "Shutdown error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
