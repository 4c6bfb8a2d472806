package reroute

import (
	"github.com/inbucket/reroute/pkg/metric"
	"github.com/rs/zerolog"
)

type logHook struct{}

// Run implements a zerolog hook that updates the reroute warning/error expvars.
func (h logHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	switch level {
	case zerolog.WarnLevel:
		metric.ExpWarningsTotal.Add(1)
	case zerolog.ErrorLevel:
		metric.ExpErrorsTotal.Add(1)
	}
}
