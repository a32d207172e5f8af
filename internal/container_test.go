package iotcore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func resetContainerRegistry() {
	containerRegistryMu.Lock()
	defer containerRegistryMu.Unlock()
	containerRegistry = map[string]*Container{}
}

type fakeComponent struct {
	name       string
	startErr   error
	stopErr    error
	started    bool
	stopped    bool
	startOrder *[]string
	stopOrder  *[]string
}

func (fc *fakeComponent) Start() error {
	fc.started = true
	if fc.startOrder != nil {
		*fc.startOrder = append(*fc.startOrder, fc.name)
	}
	return fc.startErr
}

func (fc *fakeComponent) Stop() error {
	fc.stopped = true
	if fc.stopOrder != nil {
		*fc.stopOrder = append(*fc.stopOrder, fc.name)
	}
	return fc.stopErr
}

func TestAllocContainerDuplicate(t *testing.T) {
	resetContainerRegistry()
	defer resetContainerRegistry()

	if _, err := AllocContainer("dup", MapLoader{}, nil); err != nil {
		t.Fatalf("first alloc: unexpected error: %v", err)
	}
	if _, err := AllocContainer("dup", MapLoader{}, nil); err == nil {
		t.Error("second alloc: want error, got nil")
	}
}

func TestContainerFindComponentUnknownType(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetContainerRegistry()
	defer resetFactoryRegistry()

	loader := MapLoader{"container-unknown": `{"widget": "no-such-type"}`}
	cont, err := AllocContainer("container-unknown", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	comp, err := cont.FindComponent("widget")
	if err != nil {
		t.Errorf("FindComponent: unexpected error: %v", err)
	}
	if comp != nil {
		t.Errorf("FindComponent: want nil component for unknown type, got %v", comp)
	}
}

func TestContainerBuildAndCache(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetContainerRegistry()
	defer resetFactoryRegistry()

	built := 0
	RegisterFactory(&Factory{
		Type: "widget",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			built++
			return &fakeComponent{name: "widget"}, nil
		},
	})

	loader := MapLoader{"container-cache": `{"widget": "widget"}`}
	cont, err := AllocContainer("container-cache", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	first, err := cont.FindComponent("widget")
	if err != nil {
		t.Fatalf("first FindComponent: unexpected error: %v", err)
	}
	second, err := cont.FindComponent("widget")
	if err != nil {
		t.Fatalf("second FindComponent: unexpected error: %v", err)
	}
	if first != second {
		t.Error("FindComponent: want the same instance on repeated lookup")
	}
	if built != 1 {
		t.Errorf("ConfigFn call count: want 1, got %d", built)
	}
}

func TestContainerCycleDetection(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetContainerRegistry()
	defer resetFactoryRegistry()

	var cont *Container
	RegisterFactory(&Factory{
		Type: "cyclic",
		ConfigFn: func(c *Container, cfgMap map[string]any) (Component, error) {
			other, _ := cfgMap["Other"].(string)
			if other != "" {
				return c.FindComponent(other)
			}
			return &fakeComponent{}, nil
		},
	})

	loader := MapLoader{
		"container-cycle": `{"a": "cyclic", "b": "cyclic"}`,
		"a":               `{"Other": "b"}`,
		"b":               `{"Other": "a"}`,
	}
	var err error
	cont, err = AllocContainer("container-cycle", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	if _, err := cont.FindComponent("a"); err == nil {
		t.Error("FindComponent(a): want cycle error, got nil")
	}
}

func TestContainerStartStopOrder(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetContainerRegistry()
	defer resetFactoryRegistry()

	var startOrder, stopOrder []string
	RegisterFactory(&Factory{
		Type: "ordered",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			name, _ := cfgMap["Name"].(string)
			return &fakeComponent{name: name, startOrder: &startOrder, stopOrder: &stopOrder}, nil
		},
	})

	loader := MapLoader{
		"container-order": `{"first": "ordered", "second": "ordered", "third": "ordered"}`,
		"first":           `{"Name": "first"}`,
		"second":          `{"Name": "second"}`,
		"third":           `{"Name": "third"}`,
	}
	cont, err := AllocContainer("container-order", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}
	if err := cont.Init(); err != nil {
		t.Fatalf("init: unexpected error: %v", err)
	}
	if err := cont.Start(); err != nil {
		t.Fatalf("start: unexpected error: %v", err)
	}
	cont.Stop()

	wantStart := []string{"first", "second", "third"}
	wantStop := []string{"third", "second", "first"}
	if diff := cmp.Diff(wantStart, startOrder); diff != "" {
		t.Errorf("start order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantStop, stopOrder); diff != "" {
		t.Errorf("stop order mismatch (-want +got):\n%s", diff)
	}
}

func TestContainerDumpResolvedTypes(t *testing.T) {
	resetContainerRegistry()
	defer resetContainerRegistry()

	loader := MapLoader{"container-dump": `{"first": "typeA", "second": "typeB"}`}
	cont, err := AllocContainer("container-dump", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}

	doc, err := cont.DumpResolvedTypes()
	if err != nil {
		t.Fatalf("DumpResolvedTypes: unexpected error: %v", err)
	}
	want := `{"first":"typeA","second":"typeB"}`
	if doc != want {
		t.Errorf("DumpResolvedTypes: want %q, got %q", want, doc)
	}
}

func TestContainerDeleteComponent(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetContainerRegistry()
	defer resetFactoryRegistry()

	freed := 0
	RegisterFactory(&Factory{
		Type: "widget",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			return &fakeComponent{name: "widget"}, nil
		},
		FreeFn: func(Component) { freed++ },
	})

	loader := MapLoader{"container-delete": `{"widget": "widget"}`}
	cont, err := AllocContainer("container-delete", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}
	comp, err := cont.FindComponent("widget")
	if err != nil {
		t.Fatalf("FindComponent: unexpected error: %v", err)
	}

	cont.DeleteComponent("widget")

	if !comp.(*fakeComponent).stopped {
		t.Error("DeleteComponent: want component stopped")
	}
	if freed != 1 {
		t.Errorf("FreeFn call count: want 1, got %d", freed)
	}

	cont.mu.RLock()
	_, stillThere := cont.byName["widget"]
	cont.mu.RUnlock()
	if stillThere {
		t.Error("DeleteComponent: want component unlinked from byName")
	}
}

func TestContainerFree(t *testing.T) {
	resetContainerRegistry()
	resetFactoryRegistry()
	defer resetFactoryRegistry()

	freed := 0
	RegisterFactory(&Factory{
		Type: "widget",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			return &fakeComponent{name: "widget"}, nil
		},
		FreeFn: func(Component) { freed++ },
	})

	loader := MapLoader{"container-free": `{"widget": "widget"}`}
	cont, err := AllocContainer("container-free", loader, nil)
	if err != nil {
		t.Fatalf("alloc: unexpected error: %v", err)
	}
	if _, err := cont.FindComponent("widget"); err != nil {
		t.Fatalf("FindComponent: unexpected error: %v", err)
	}

	cont.Free()

	if freed != 1 {
		t.Errorf("FreeFn call count: want 1, got %d", freed)
	}
	if _, err := AllocContainer("container-free", loader, nil); err != nil {
		t.Errorf("re-alloc after Free: want success, got %v", err)
	}
}
