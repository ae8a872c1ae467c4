package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"github.com/wolfslender/Media-Usage-Checker/internal/api"
	"github.com/wolfslender/Media-Usage-Checker/internal/bootstrap"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/batch"
	"github.com/wolfslender/Media-Usage-Checker/pkg/cleanup"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval        = 15 * time.Minute
	defaultResumeDelay     = time.Second
	defaultShutdownTimeout = 60 * time.Second
)

type MediaAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg      *config.BaseConfig
	sc       *container.ServiceContainer
	log      log.LoggerService
	services *bootstrap.Services
}

func NewAgent(cfg *config.BaseConfig) *MediaAgent {
	return &MediaAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("muc", cfg.Log),
	}
}

func (a *MediaAgent) setupServices(ctx context.Context) error {
	services, err := bootstrap.New(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	a.services = services

	errs := container.Errors{}

	a.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](a.sc,
		container.With[log.LoggerService](),
		container.WithInstance(a.log)))

	a.log.Debug("Registering 'Walker'...")
	errs.Add(container.Register[batch.Walker](a.sc,
		container.With[api.Walker](),
		container.WithInstance(services.Walker)))

	a.log.Debug("Registering 'Checker'...")
	errs.Add(container.Register[usage.Scanner](a.sc,
		container.With[api.Checker](),
		container.WithInstance(services.Scanner)))

	a.log.Debug("Registering 'Cleaner'...")
	errs.Add(container.Register[cleanup.Cleaner](a.sc,
		container.With[api.Cleaner](),
		container.WithInstance(services.Cleaner)))

	return errs.Errors()
}

// Serve runs the scan loop, and the API when enabled, until interrupted.
func (a *MediaAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.mutex.Lock()
	if err := a.setupServices(ctx); err != nil {
		a.mutex.Unlock()
		if a.services != nil {
			_ = a.services.Close()
		}
		return err
	}
	a.mutex.Unlock()

	timeout := config.Duration(a.cfg.ShutdownTimeout, defaultShutdownTimeout)

	logger, err := log.FromContainer(ctx, a.sc, "agent")
	if err != nil {
		return errors.Join(err, a.services.Close())
	}

	walker, err := resolve[api.Walker](ctx, a.sc)
	if err != nil {
		return errors.Join(err, a.services.Close())
	}

	var server *api.Server
	if a.cfg.API.Enabled {
		if server, err = a.newServer(ctx, walker, logger.Named("api")); err != nil {
			return errors.Join(err, a.services.Close())
		}
	}

	group, gctx := errgroup.WithContext(ctx)

	loop := &Loop{
		Walker:      walker,
		Logger:      logger,
		Interval:    config.Duration(a.cfg.Agent.Interval, defaultInterval),
		ResumeDelay: config.Duration(a.cfg.Agent.ResumeDelay, defaultResumeDelay),
	}
	a.wait.Add(1)
	group.Go(func() error {
		defer a.wait.Done()
		return loop.Run(gctx)
	})

	if server != nil {
		group.Go(func() error {
			return server.Serve(gctx, timeout)
		})
	}

	runErr := group.Wait()

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	if err := a.sc.Cleanup(shutdown); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}

	a.wait.Wait()

	if err := a.services.Close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func (a *MediaAgent) newServer(ctx context.Context, walker api.Walker, logger log.LoggerService) (*api.Server, error) {
	checker, err := resolve[api.Checker](ctx, a.sc)
	if err != nil {
		return nil, err
	}

	cleaner, err := resolve[api.Cleaner](ctx, a.sc)
	if err != nil {
		return nil, err
	}
	return api.NewServer(walker, checker, cleaner, logger, a.cfg.API), nil
}

// resolve looks up the service registered for the interface T.
func resolve[T any](ctx context.Context, sc *container.ServiceContainer) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()

	ok, resolved := sc.ResolveByType(ctx, typ)
	if !ok {
		return zero, fmt.Errorf("no %s service registered", typ)
	}

	svc, ok := resolved.(T)
	if !ok {
		return zero, fmt.Errorf("resolved service is not a %s", typ)
	}
	return svc, nil
}
