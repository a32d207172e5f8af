// Built-in "scheduler" component factory (spec §4.5, §6).
//
// Wraps a *Scheduler as a Component so it can sit in a Container's holder
// list like any other component, and wires the three recognised
// configuration keys (Logger, Affinity, Priority) exactly as named in
// spec §6.

package iotcore

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LoggerProvider is implemented by a container's logger component, letting
// other factories look up a named logger the way SchedulerConfig's
// `Logger` key does.
type LoggerProvider interface {
	Component
	Logger() *logrus.Entry
}

// SchedulerComponentConfig is the scheduler factory's configuration
// surface (spec §6, "Scheduler factory configuration").
type SchedulerComponentConfig struct {
	// Logger names a logger component in the same container. Empty means
	// "use the package root logger."
	Logger string `json:"Logger"`
	// Affinity optionally pins the dispatcher thread to one CPU id. 0
	// means "no affinity."
	Affinity int `json:"Affinity"`
	// Priority optionally sets the dispatcher thread's nice value. 0 means
	// "no change."
	Priority int `json:"Priority"`
}

func DefaultSchedulerComponentConfig() *SchedulerComponentConfig {
	return &SchedulerComponentConfig{}
}

// SchedulerComponent adapts *Scheduler to the container's Component
// interface. Its exported methods (Create, Add, Remove, ...) are promoted
// straight through the embedded *Scheduler.
type SchedulerComponent struct {
	*Scheduler
}

func (sc *SchedulerComponent) Start() error {
	sc.Scheduler.Start()
	return nil
}

func (sc *SchedulerComponent) Stop() error {
	sc.Scheduler.Stop()
	return nil
}

func init() {
	RegisterFactory(&Factory{
		Type: "scheduler",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			cfg := DefaultSchedulerComponentConfig()
			if err := DecodeComponentConfig(cfgMap, cfg); err != nil {
				return nil, fmt.Errorf("scheduler config: %w", err)
			}

			log := schedulerLog
			if cfg.Logger != "" {
				comp, err := cont.FindComponent(cfg.Logger)
				if err != nil {
					return nil, fmt.Errorf("scheduler: logger %q: %w", cfg.Logger, err)
				}
				if lp, ok := comp.(LoggerProvider); ok && lp != nil {
					log = lp.Logger()
				}
			}

			var cpus []int
			if cfg.Affinity != 0 {
				cpus = []int{cfg.Affinity}
			}

			return &SchedulerComponent{Scheduler: NewScheduler(cfg.Priority, cpus, log)}, nil
		},
		FreeFn: func(c Component) {
			if sc, ok := c.(*SchedulerComponent); ok {
				sc.Scheduler.Free()
			}
		},
	})
}
