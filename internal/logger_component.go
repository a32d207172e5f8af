// Built-in "logger" component factory.
//
// Gives other components something to reference by name via the Logger
// key in their own configuration (spec §6, "Logger — name of a logger
// component in the same container"). There is exactly one process-wide
// RootLogger (internal/logger.go); this component applies a LoggerConfig
// to it and hands out a named sub-entry, the same shape NewCompLogger
// already gives every other package in this repository.

package iotcore

import "github.com/sirupsen/logrus"

// LoggerComponent satisfies LoggerProvider.
type LoggerComponent struct {
	entry *logrus.Entry
}

func (lc *LoggerComponent) Start() error { return nil }
func (lc *LoggerComponent) Stop() error  { return nil }

func (lc *LoggerComponent) Logger() *logrus.Entry { return lc.entry }

func init() {
	RegisterFactory(&Factory{
		Type: "logger",
		ConfigFn: func(cont *Container, cfgMap map[string]any) (Component, error) {
			cfg := DefaultLoggerConfig()
			if err := DecodeComponentConfig(cfgMap, cfg); err != nil {
				return nil, err
			}
			if err := SetLogger(cfg); err != nil {
				return nil, err
			}
			return &LoggerComponent{entry: NewCompLogger(cont.Name())}, nil
		},
	})
}
