package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	events *[]string
}

type component struct {
	recorder
	name     string
	startErr error
}

func (c *component) Start(ctx context.Context) error {
	*c.events = append(*c.events, "start "+c.name)
	return c.startErr
}

func (c *component) Stop(ctx context.Context) error {
	*c.events = append(*c.events, "stop "+c.name)
	return nil
}

type routesOnly struct {
	recorder
}

func (r routesOnly) RegisterRoutes(chi.Router) {
	*r.events = append(*r.events, "routes")
}

func TestLifecycleStartStop(t *testing.T) {
	var events []string
	a := &component{recorder: recorder{&events}, name: "a"}
	b := &component{recorder: recorder{&events}, name: "b"}
	routes := routesOnly{recorder{&events}}

	lc := Setup(logger.NewNoopLogger(), a, routes, b)
	if err := lc.Start(context.Background(), chi.NewRouter()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	lc.Stop(context.Background())

	want := []string{"start a", "start b", "routes", "stop b", "stop a"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestLifecycleRollback(t *testing.T) {
	var events []string
	boom := errors.New("boom")
	a := &component{recorder: recorder{&events}, name: "a"}
	b := &component{recorder: recorder{&events}, name: "b", startErr: boom}
	c := &component{recorder: recorder{&events}, name: "c"}
	routes := routesOnly{recorder{&events}}

	lc := Setup(logger.NewNoopLogger(), a, b, c, routes)
	err := lc.Start(context.Background(), chi.NewRouter())
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want %v", err, boom)
	}

	want := []string{"start a", "start b", "stop a"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
