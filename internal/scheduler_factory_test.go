package iotcore

import (
	"testing"
	"time"
)

func TestSchedulerFactoryBuild(t *testing.T) {
	resetContainerRegistry()
	defer resetContainerRegistry()

	loader := MapLoader{
		"scheduler-factory": `{"sched": "scheduler"}`,
		"sched":             `{"Priority": 0}`,
	}
	cont, err := AllocContainer("scheduler-factory", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	comp, err := cont.FindComponent("sched")
	if err != nil {
		t.Fatalf("FindComponent: unexpected error: %v", err)
	}
	sc, ok := comp.(*SchedulerComponent)
	if !ok {
		t.Fatalf("FindComponent: want *SchedulerComponent, got %T", comp)
	}

	if err := sc.Start(); err != nil {
		t.Fatalf("Start: unexpected error: %v", err)
	}

	ran := make(chan struct{}, 1)
	sch := sc.Create(func(any) { ran <- struct{}{} }, nil, nil, 0, 10*time.Millisecond, 1, nil, 0)
	sc.Add(sch)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("scheduled function did not run")
	}

	if err := sc.Stop(); err != nil {
		t.Fatalf("Stop: unexpected error: %v", err)
	}

	cont.DeleteComponent("sched")
}

func TestSchedulerFactoryWithLoggerComponent(t *testing.T) {
	resetContainerRegistry()
	defer resetContainerRegistry()

	loader := MapLoader{
		"scheduler-factory-logger": `{"log": "logger", "sched": "scheduler"}`,
		"log":                      `{}`,
		"sched":                   `{"Logger": "log"}`,
	}
	cont, err := AllocContainer("scheduler-factory-logger", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	comp, err := cont.FindComponent("sched")
	if err != nil {
		t.Fatalf("FindComponent: unexpected error: %v", err)
	}
	if _, ok := comp.(*SchedulerComponent); !ok {
		t.Fatalf("FindComponent: want *SchedulerComponent, got %T", comp)
	}

	cont.DeleteComponent("sched")
	cont.DeleteComponent("log")
}

func TestSchedulerFactoryUndeclaredLoggerFallsBack(t *testing.T) {
	resetContainerRegistry()
	defer resetContainerRegistry()

	// "missing" is referenced by Logger but never declared in the
	// container's own type map, so FindComponent resolves it to (nil, nil)
	// and the scheduler factory falls back to the package root logger
	// rather than failing outright.
	loader := MapLoader{
		"scheduler-factory-badlogger": `{"sched": "scheduler"}`,
		"sched":                       `{"Logger": "missing"}`,
	}
	cont, err := AllocContainer("scheduler-factory-badlogger", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	comp, err := cont.FindComponent("sched")
	if err != nil {
		t.Fatalf("FindComponent: unexpected error: %v", err)
	}
	if _, ok := comp.(*SchedulerComponent); !ok {
		t.Fatalf("FindComponent: want *SchedulerComponent, got %T", comp)
	}
}
