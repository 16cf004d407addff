package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 5 * time.Second

// Startable is a component with work to do before the server accepts requests.
type Startable interface {
	Start(context.Context) error
}

// Stoppable is a component that releases resources on shutdown.
type Stoppable interface {
	Stop(context.Context) error
}

// RouteRegistrar is a component that mounts HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(chi.Router)
}

type stage struct {
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle holds the start/stop pipelines discovered from components.
type Lifecycle struct {
	stages     []stage
	registrars []RouteRegistrar
	log        logger.Logger
}

// Setup inspects each component for RouteRegistrar, Startable and Stoppable
// and records them in the order given.
func Setup(log logger.Logger, comps ...any) *Lifecycle {
	lc := &Lifecycle{log: log}
	for _, c := range comps {
		if rr, ok := c.(RouteRegistrar); ok {
			lc.registrars = append(lc.registrars, rr)
		}
		var st stage
		if s, ok := c.(Startable); ok {
			st.start = s.Start
		}
		if s, ok := c.(Stoppable); ok {
			st.stop = s.Stop
		}
		if st.start != nil || st.stop != nil {
			lc.stages = append(lc.stages, st)
		}
	}
	return lc
}

// Start runs the start functions in order. If one fails, the components
// already started are stopped in reverse order and the error is returned.
// Routes are registered only after every component started.
func (lc *Lifecycle) Start(ctx context.Context, router chi.Router) error {
	for i, st := range lc.stages {
		if st.start == nil {
			continue
		}
		if err := st.start(ctx); err != nil {
			lc.log.Errorf("Cannot start component #%d: %v", i, err)
			for j := i - 1; j >= 0; j-- {
				if lc.stages[j].stop == nil {
					continue
				}
				if rErr := lc.stages[j].stop(context.Background()); rErr != nil {
					lc.log.Errorf("Cannot stop component #%d during rollback: %v", j, rErr)
				}
			}
			return err
		}
	}

	if router != nil {
		for _, rr := range lc.registrars {
			rr.RegisterRoutes(router)
		}
	}

	return nil
}

// Stop stops all components in reverse order.
func (lc *Lifecycle) Stop(ctx context.Context) {
	for i := len(lc.stages) - 1; i >= 0; i-- {
		if lc.stages[i].stop == nil {
			continue
		}
		if err := lc.stages[i].stop(ctx); err != nil {
			lc.log.Errorf("Cannot stop component #%d: %v", i, err)
		}
	}
}

// Serve runs an HTTP server until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, handler http.Handler, addr string, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down admin server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
