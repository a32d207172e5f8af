// The public face of this module for its users: a Scheduler for timed
// dispatch and a Container for assembling named, dependency-ordered
// components around it.

package iotsched

import (
	"github.com/sirupsen/logrus"

	iotcore "github.com/eaton-coreymutter/iotech-go-utils/internal"
)

// Scheduler types.

type Scheduler = iotcore.Scheduler
type Schedule = iotcore.Schedule
type SchedulerState = iotcore.SchedulerState
type Pool = iotcore.Pool
type ThreadPool = iotcore.ThreadPool
type ThreadPoolConfig = iotcore.ThreadPoolConfig

const (
	SchedulerStateInitial = iotcore.SchedulerStateInitial
	SchedulerStateRunning = iotcore.SchedulerStateRunning
	SchedulerStateStopped = iotcore.SchedulerStateStopped
	SchedulerStateDeleted = iotcore.SchedulerStateDeleted
)

// NewScheduler allocates a scheduler and launches its dispatcher goroutine
// in the Initial state. priority/cpus pin the dispatcher thread itself
// (cpus may be nil for no pinning); log may be nil to use the package root
// logger.
func NewScheduler(priority int, cpus []int, log *logrus.Entry) *Scheduler {
	return iotcore.NewScheduler(priority, cpus, log)
}

func NewThreadPool(cfg *ThreadPoolConfig) *ThreadPool {
	return iotcore.NewThreadPool(cfg)
}

func DefaultThreadPoolConfig() *ThreadPoolConfig {
	return iotcore.DefaultThreadPoolConfig()
}

// ParseAffinity turns a "0,2-3,7" style spec into a sorted list of CPU ids.
func ParseAffinity(spec string) ([]int, error) {
	return iotcore.ParseAffinity(spec)
}

// Container types.

type Container = iotcore.Container
type Component = iotcore.Component
type Factory = iotcore.Factory
type Holder = iotcore.Holder
type Loader = iotcore.Loader
type DirLoader = iotcore.DirLoader
type MapLoader = iotcore.MapLoader
type LoggerProvider = iotcore.LoggerProvider

// AllocContainer allocates a container under name iff none exists yet in
// the process-wide registry.
func AllocContainer(name string, loader Loader, source any) (*Container, error) {
	return iotcore.AllocContainer(name, loader, source)
}

func NewDirLoader(dir string) *DirLoader {
	return iotcore.NewDirLoader(dir)
}

// RegisterFactory adds a factory under its Type key. A duplicate
// registration for the same type is silently ignored; the first
// registration wins.
func RegisterFactory(f *Factory) {
	iotcore.RegisterFactory(f)
}

type CollectableLogger = iotcore.CollectableLogger

// Root logger access, following the teacher's pattern of exposing the root
// logger only for tests to capture (see testutils/log_collector.go):
//
//	tlc := iottestutils.NewTestLogCollect(t, iotsched.GetRootLogger(), nil)
//	defer tlc.RestoreLog()
func GetRootLogger() *CollectableLogger { return iotcore.GetRootLogger() }

// NewCompLogger creates a component sub-logger tagged comp=compName.
func NewCompLogger(comp string) *logrus.Entry {
	return iotcore.NewCompLogger(comp)
}

type LoggerConfig = iotcore.LoggerConfig

func DefaultLoggerConfig() *LoggerConfig {
	return iotcore.DefaultLoggerConfig()
}

func SetLogger(cfg *LoggerConfig) error {
	return iotcore.SetLogger(cfg)
}

// Build info, normally set via init() by the user of this package, before
// Run is invoked.
func UpdateBuildInfo(version, gitInfo string) {
	iotcore.Version = version
	iotcore.GitInfo = gitInfo
}

// Run allocates, initializes, and starts the container named by the
// "-container" flag from the JSON files under "-config-dir", then blocks
// until a shutdown signal arrives. The return value is the process exit
// code.
func Run() int { return iotcore.Run() }

// DefaultThreadPoolWorkers matches the host's available CPU count, the
// same default NewThreadPool falls back to when NumWorkers is left unset.
func DefaultThreadPoolWorkers() int { return iotcore.AvailableCPUCount }
