// Built-in "sysinfo" component (SPEC_FULL addition).
//
// Demonstrates a component that both depends on another component (its
// scheduler, looked up by name) and drives its own periodic work through
// it, the clearest example of container + scheduler working together.
// Sampling itself is grounded on github.com/mackerelio/go-osstat, already
// a direct dependency of the teacher module for the same purpose
// (internal/os_info.go's available-CPU accounting draws on the same
// /proc-derived stats family).

package iotcore

import (
	"fmt"
	"sync"
	"time"

	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/loadavg"
	"github.com/mackerelio/go-osstat/memory"
	"github.com/sirupsen/logrus"
)

// SysinfoComponentConfig configures the sysinfo component.
type SysinfoComponentConfig struct {
	// Scheduler names the scheduler component this sysinfo component
	// registers its sampling schedule with.
	Scheduler string `json:"Scheduler"`
	// Period is a time.ParseDuration string, e.g. "30s".
	Period string `json:"Period"`
}

const sysinfoDefaultPeriod = 30 * time.Second

func DefaultSysinfoComponentConfig() *SysinfoComponentConfig {
	return &SysinfoComponentConfig{
		Period: sysinfoDefaultPeriod.String(),
	}
}

// SysinfoSnapshot is the most recently sampled system stat set.
type SysinfoSnapshot struct {
	Load1       float64
	CPUUser     uint64
	CPUSystem   uint64
	CPUIdle     uint64
	MemUsed     uint64
	MemTotal    uint64
	SampledAtNs int64
}

// schedulerAPI is the slice of *Scheduler's surface sysinfo needs; a
// *SchedulerComponent satisfies it by promotion through its embedded
// *Scheduler.
type schedulerAPI interface {
	Create(fn func(any), freeFn func(any), arg any, period, startOffset time.Duration, repeat uint32, pool Pool, priority int) *Schedule
	Add(*Schedule) bool
	Delete(*Schedule)
}

type SysinfoComponent struct {
	log       *logrus.Entry
	scheduler schedulerAPI
	period    time.Duration
	schedule  *Schedule

	mu   sync.Mutex
	last SysinfoSnapshot
}

func (c *SysinfoComponent) Start() error {
	c.schedule = c.scheduler.Create(c.sample, nil, nil, c.period, 0, 0, nil, 0)
	c.scheduler.Add(c.schedule)
	return nil
}

func (c *SysinfoComponent) Stop() error {
	if c.schedule != nil {
		c.scheduler.Delete(c.schedule)
	}
	return nil
}

func (c *SysinfoComponent) sample(any) {
	snap := SysinfoSnapshot{SampledAtNs: NowNs()}

	if load, err := loadavg.Get(); err == nil {
		snap.Load1 = load.Loadavg1
	} else {
		c.log.Warnf("loadavg: %v", err)
	}

	if cpuStats, err := cpu.Get(); err == nil {
		snap.CPUUser = cpuStats.User
		snap.CPUSystem = cpuStats.System
		snap.CPUIdle = cpuStats.Idle
	} else {
		c.log.Warnf("cpu: %v", err)
	}

	if mem, err := memory.Get(); err == nil {
		snap.MemUsed = mem.Used
		snap.MemTotal = mem.Total
	} else {
		c.log.Warnf("memory: %v", err)
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
}

// Snapshot returns the most recent sample taken.
func (c *SysinfoComponent) Snapshot() SysinfoSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func init() {
	RegisterFactory(&Factory{
		Type: "sysinfo",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			cfg := DefaultSysinfoComponentConfig()
			if err := DecodeComponentConfig(cfgMap, cfg); err != nil {
				return nil, fmt.Errorf("sysinfo config: %w", err)
			}
			if cfg.Scheduler == "" {
				return nil, fmt.Errorf("sysinfo: Scheduler is required")
			}
			period, err := time.ParseDuration(cfg.Period)
			if err != nil {
				return nil, fmt.Errorf("sysinfo: Period: %w", err)
			}

			comp, err := cont.FindComponent(cfg.Scheduler)
			if err != nil {
				return nil, fmt.Errorf("sysinfo: scheduler %q: %w", cfg.Scheduler, err)
			}
			sched, ok := comp.(schedulerAPI)
			if !ok || sched == nil {
				return nil, fmt.Errorf("sysinfo: component %q is not a scheduler", cfg.Scheduler)
			}

			return &SysinfoComponent{
				log:       NewCompLogger("sysinfo"),
				scheduler: sched,
				period:    period,
			}, nil
		},
	})
}
