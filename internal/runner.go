package iotcore

// The runner is the main entry point for a process hosting a component
// container. It is responsible for allocating the container from a
// directory of JSON configuration files, initializing and starting every
// component it declares, then blocking until a shutdown signal arrives.
//
// Shutdown mirrors the teacher's own runner.go: a deferred, initially
// stopped timer provides a grace period bound, registered before the
// container's own Stop/Free defers so it fires last; a signal triggers an
// orderly Stop/Free, and if that doesn't complete within the grace period
// the watchdog timer forces an abrupt exit.

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	CONFIG_DIR_FLAG_NAME      = "config-dir"
	CONTAINER_NAME_DEFAULT    = "main"
	SHUTDOWN_MAX_WAIT_DEFAULT = 5 * time.Second
)

var (
	// Build info, normally set via init() by the user of this package.
	Version string
	GitInfo string
)

var runnerLog = NewCompLogger("runner")

var (
	versionArg = flag.Bool(
		"version",
		false,
		`Print the version and exit`,
	)

	configDirArg = flag.String(
		CONFIG_DIR_FLAG_NAME,
		".",
		`Directory holding "<container>.json" and "<component>.json" config files`,
	)

	containerNameArg = flag.String(
		"container",
		CONTAINER_NAME_DEFAULT,
		`Name of the container to allocate and run`,
	)

	shutdownMaxWaitArg = flag.Duration(
		"shutdown-max-wait",
		SHUTDOWN_MAX_WAIT_DEFAULT,
		`How long to wait for a graceful shutdown; 0 means exit abruptly on signal`,
	)
)

// Run allocates, initializes, and starts the named container, then blocks
// until a SIGINT/SIGTERM is received. The return value is the process exit
// code.
func Run() int {
	if !flag.Parsed() {
		flag.Parse()
	}

	if *versionArg {
		fmt.Fprintf(os.Stderr, "Version: %s, GitInfo: %s\n", Version, GitInfo)
		return 0
	}

	cont, err := AllocContainer(*containerNameArg, NewDirLoader(*configDirArg), nil)
	if err != nil {
		runnerLog.Errorf("alloc container %q: %v", *containerNameArg, err)
		return 1
	}

	// The watchdog timer's stop is deferred before the container's Free/Stop
	// so it runs last at unwind time, same ordering the teacher relies on for
	// its shutdown timer vs. component shutdowns.
	var shutdownTimer *time.Timer
	if *shutdownMaxWaitArg > 0 {
		shutdownTimer = time.NewTimer(1 * time.Hour)
		shutdownTimer.Stop()
		defer shutdownTimer.Stop()
	}

	if err := cont.Init(); err != nil {
		runnerLog.Errorf("init container %q: %v", cont.Name(), err)
		return 1
	}
	defer cont.Free()

	if err := cont.Start(); err != nil {
		runnerLog.Errorf("start container %q: %v", cont.Name(), err)
		return 1
	}
	defer cont.Stop()

	runnerLog.Infof("container %q started from %q", cont.Name(), *configDirArg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	if *shutdownMaxWaitArg == 0 {
		runnerLog.Warnf("%s signal received, force exit", sig)
		os.Exit(1)
	}
	runnerLog.Warnf("%s signal received, shutting down", sig)

	go func() {
		shutdownTimer.Reset(*shutdownMaxWaitArg)
		<-shutdownTimer.C
		runnerLog.Fatalf("shutdown timed out after %s, force exit", *shutdownMaxWaitArg)
	}()

	return 0
}
