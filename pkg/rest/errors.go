package rest

import "errors"

var (
	errListenerClosed = errors.New("monitor listener closed")
	errListenerFull   = errors.New("monitor listener queue full")
	errNoMonitor      = errors.New("evaluation monitor is not enabled")
)
