// Component container (spec §4.5, §6).
//
// Grounded on the teacher's single package-level default-instance pattern
// in vmi.go (one mutex-guarded global, alloc-if-absent semantics) extended
// to a full registry since this spec allows multiple named containers per
// process. start/stop iterate the holder list exactly the way the teacher
// never needed to (VMI had one flat set of generators); the ordered
// holder list here is what gives "stop in exactly the reverse of start"
// (spec §8 invariant 7).

package iotcore

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/a8m/envsubst"
	"github.com/huandu/go-clone"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Holder pairs a named component with the factory that built it.
type Holder struct {
	Name      string
	Component Component
	factory   *Factory
}

// Container is an ordered, named collection of components (spec §3
// "Container", §4.5).
type Container struct {
	name   string
	loader Loader
	source any
	log    *logrus.Entry

	mu      sync.RWMutex
	holders []*Holder
	byName  map[string]*Holder

	typesLoaded    bool
	types          map[string]string
	componentOrder []string

	loadMu       sync.Mutex
	loadingStack []string
}

var (
	containerRegistryMu sync.Mutex
	containerRegistry   = map[string]*Container{}
)

// AllocContainer allocates a container under name iff none exists yet in
// the process-wide registry (spec §4.5 `alloc`).
func AllocContainer(name string, loader Loader, source any) (*Container, error) {
	containerRegistryMu.Lock()
	defer containerRegistryMu.Unlock()
	if _, exists := containerRegistry[name]; exists {
		return nil, fmt.Errorf("container %q already allocated", name)
	}
	cont := &Container{
		name:   name,
		loader: loader,
		source: source,
		log:    NewCompLogger("container").WithField("container", name),
		byName: make(map[string]*Holder),
	}
	containerRegistry[name] = cont
	return cont, nil
}

// Name returns the container's name.
func (cont *Container) Name() string { return cont.name }

// loadTypes loads the container-level configuration (component_name ->
// component_type) exactly once, preserving declaration order via gjson's
// source-order iteration - a plain map[string]any from encoding/json would
// not give that ordering guarantee.
func (cont *Container) loadTypes() error {
	cont.loadMu.Lock()
	defer cont.loadMu.Unlock()
	if cont.typesLoaded {
		return nil
	}

	text, err := cont.loader.Load(cont.name, cont.source)
	if err != nil {
		return fmt.Errorf("container %q: %w", cont.name, err)
	}
	cont.typesLoaded = true
	cont.types = make(map[string]string)
	cont.componentOrder = nil
	if text == "" {
		return nil
	}

	expanded, err := envsubst.String(text)
	if err != nil {
		return fmt.Errorf("container %q: env substitution: %w", cont.name, err)
	}

	parsed := gjson.Parse(expanded)
	if !parsed.IsObject() {
		return fmt.Errorf("container %q: configuration is not a JSON object", cont.name)
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		cont.types[name] = value.String()
		cont.componentOrder = append(cont.componentOrder, name)
		return true
	})
	return nil
}

// DumpResolvedTypes renders the container's resolved component_name ->
// component_type map as a standalone JSON document, in declaration order.
// Built incrementally with sjson rather than a map[string]any + json.Marshal
// round trip, since the latter would not preserve that order. Useful for a
// debug/introspection surface over what a container actually loaded.
func (cont *Container) DumpResolvedTypes() (string, error) {
	if err := cont.loadTypes(); err != nil {
		return "", err
	}
	doc := "{}"
	var err error
	for _, name := range cont.componentOrder {
		doc, err = sjson.Set(doc, name, cont.types[name])
		if err != nil {
			return "", fmt.Errorf("container %q: dump: %w", cont.name, err)
		}
	}
	return doc, nil
}

// Init loads every component named in the container's configuration, in
// declaration order (spec §4.5 `init`). A single pass: each name is
// resolved through FindComponent, which already holds the
// already-built/cycle-check/dynamic-load logic, so there is no separate
// pre-pass to fall out of sync with it (see SPEC_FULL.md's decision on the
// original source's double-iteration bug).
func (cont *Container) Init() error {
	if err := cont.loadTypes(); err != nil {
		return err
	}
	for _, name := range cont.componentOrder {
		if _, err := cont.FindComponent(name); err != nil {
			cont.log.Warnf("component %q: %v", name, err)
		}
	}
	return nil
}

// FindComponent returns the named component, building it on demand if the
// container's configuration declares it but Init hasn't reached it yet
// (spec §4.5 `find_component`). Cycle detection uses a container-scoped
// in-progress stack so a component's own ConfigFn can safely call
// FindComponent on its dependencies. The stack is shared across
// concurrent FindComponent calls rather than threaded per call chain, so
// two unrelated in-flight lookups that happen to share a name in their
// respective chains can in principle report a false-positive cycle; spec
// §5 permits a per-container stack, so this is accepted as-is.
func (cont *Container) FindComponent(name string) (Component, error) {
	cont.mu.RLock()
	if holder, ok := cont.byName[name]; ok {
		c := holder.Component
		cont.mu.RUnlock()
		return c, nil
	}
	cont.mu.RUnlock()

	if err := cont.loadTypes(); err != nil {
		return nil, err
	}

	cont.loadMu.Lock()
	for _, inProgress := range cont.loadingStack {
		if inProgress == name {
			cont.loadMu.Unlock()
			err := fmt.Errorf("cyclic component reference: %s", name)
			cont.log.Error(err)
			return nil, err
		}
	}
	cont.loadingStack = append(cont.loadingStack, name)
	cont.loadMu.Unlock()
	defer func() {
		cont.loadMu.Lock()
		cont.loadingStack = cont.loadingStack[:len(cont.loadingStack)-1]
		cont.loadMu.Unlock()
	}()

	return cont.buildComponent(name)
}

func (cont *Container) buildComponent(name string) (Component, error) {
	componentType, known := cont.types[name]
	if !known {
		return nil, nil
	}

	cfgMap, err := LoadJSONConfig(cont.loader, name, cont.source)
	if err != nil {
		cont.log.Warnf("component %q: config: %v", name, err)
		return nil, err
	}

	factory := lookupFactory(componentType)
	if factory == nil {
		factory, err = cont.tryDynamicLoad(cfgMap)
		if err != nil {
			cont.log.Errorf("component %q: dynamic load: %v", name, err)
			return nil, err
		}
	}
	if factory == nil {
		cont.log.Warnf("component %q: unknown type %q", name, componentType)
		return nil, nil
	}

	var clonedCfg map[string]any
	if cfgMap != nil {
		clonedCfg, _ = clone.Clone(cfgMap).(map[string]any)
	}

	component, err := factory.ConfigFn(cont, clonedCfg)
	if err != nil {
		cont.log.Warnf("component %q: %v", name, err)
		return nil, err
	}
	if component == nil {
		return nil, nil
	}

	holder := &Holder{Name: name, Component: component, factory: factory}
	cont.mu.Lock()
	cont.holders = append(cont.holders, holder)
	cont.byName[name] = holder
	cont.mu.Unlock()

	return component, nil
}

// tryDynamicLoad honors a component's own "Library"/"Factory" keys (spec
// §6). The symbol must be a zero-argument function returning a *Factory.
func (cont *Container) tryDynamicLoad(cfgMap map[string]any) (*Factory, error) {
	if cfgMap == nil {
		return nil, nil
	}
	libPath, _ := cfgMap["Library"].(string)
	symName, _ := cfgMap["Factory"].(string)
	if libPath == "" || symName == "" {
		return nil, nil
	}

	lib, err := plugin.Open(libPath)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", libPath, err)
	}
	sym, err := lib.Lookup(symName)
	if err != nil {
		return nil, fmt.Errorf("lookup %q in %q: %w", symName, libPath, err)
	}
	factoryFn, ok := sym.(func() *Factory)
	if !ok {
		return nil, fmt.Errorf("symbol %q in %q is not a func() *Factory", symName, libPath)
	}
	return factoryFn(), nil
}

// Start iterates holders head to tail (spec §4.5 `start`).
func (cont *Container) Start() error {
	cont.mu.RLock()
	holders := append([]*Holder(nil), cont.holders...)
	cont.mu.RUnlock()

	for _, h := range holders {
		if err := h.Component.Start(); err != nil {
			return fmt.Errorf("component %q: start: %w", h.Name, err)
		}
	}
	return nil
}

// Stop iterates holders tail to head, so dependents stop before
// dependencies (spec §4.5 `stop`, §8 invariant 7).
func (cont *Container) Stop() {
	cont.mu.RLock()
	holders := append([]*Holder(nil), cont.holders...)
	cont.mu.RUnlock()

	for i := len(holders) - 1; i >= 0; i-- {
		if err := holders[i].Component.Stop(); err != nil {
			cont.log.Warnf("component %q: stop: %v", holders[i].Name, err)
		}
	}
}

// DeleteComponent unlinks, stops, and frees one component under the write
// lock (spec §4.5 `delete_component`).
func (cont *Container) DeleteComponent(name string) {
	cont.mu.Lock()
	holder, ok := cont.byName[name]
	if !ok {
		cont.mu.Unlock()
		return
	}
	delete(cont.byName, name)
	for i, h := range cont.holders {
		if h == holder {
			cont.holders = append(cont.holders[:i], cont.holders[i+1:]...)
			break
		}
	}
	cont.mu.Unlock()

	if err := holder.Component.Stop(); err != nil {
		cont.log.Warnf("component %q: stop: %v", name, err)
	}
	if holder.factory != nil && holder.factory.FreeFn != nil {
		holder.factory.FreeFn(holder.Component)
	}
}

// Free unlinks the container from the process-wide registry and drains
// every remaining holder in insertion order, invoking each factory's
// FreeFn (spec §4.5 `free`).
func (cont *Container) Free() {
	containerRegistryMu.Lock()
	delete(containerRegistry, cont.name)
	containerRegistryMu.Unlock()

	cont.mu.Lock()
	holders := cont.holders
	cont.holders = nil
	cont.byName = make(map[string]*Holder)
	cont.mu.Unlock()

	for _, h := range holders {
		if h.factory != nil && h.factory.FreeFn != nil {
			h.factory.FreeFn(h.Component)
		}
	}
}
