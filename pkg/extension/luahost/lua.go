// Package luahost runs Lua scripts that subscribe to reroute engine events.
package luahost

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const listenerName = "lua"

// Host of Lua extensions.
type Host struct {
	extHost *extension.Host
	pool    *statePool
	logger  zerolog.Logger
}

// New constructs a new Lua Host, pre-compiling the source.  Returns nil without error when the
// configured script does not exist.
func New(conf config.Lua, extHost *extension.Host) (*Host, error) {
	scriptPath := conf.Path
	if scriptPath == "" {
		return nil, nil
	}

	logger := log.With().Str("module", "lua").Logger()
	startLogger := logger.With().Str("phase", "startup").Str("path", scriptPath).Logger()

	// Pre-load, parse, and compile script.
	if fi, err := os.Stat(scriptPath); err != nil {
		startLogger.Info().Msg("Script file not found")
		return nil, nil
	} else if fi.IsDir() {
		return nil, fmt.Errorf("lua script %v is a directory", scriptPath)
	}

	startLogger.Info().Msg("Loading script")
	file, err := os.Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return NewFromReader(logger, extHost, bufio.NewReader(file), scriptPath)
}

// NewFromReader constructs a new Lua Host, loading Lua source from the provided reader.
// The provided path is used in logging and error messages.
func NewFromReader(
	logger zerolog.Logger,
	extHost *extension.Host,
	r io.Reader,
	path string,
) (*Host, error) {
	// Pre-parse, and compile script.
	chunk, err := parse.Parse(r, path)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	// Build the pool and run the script once to learn which events it handles.
	pool := newStatePool(logger, proto)
	h := &Host{extHost: extHost, pool: pool, logger: logger}
	ls, err := pool.get()
	if err != nil {
		return nil, err
	}
	defer pool.put(ls)
	h.wireFunctions(ls.reroute)

	return h, nil
}

// CreateChannel creates a channel and places it into the named global variable
// in newly created LStates.
func (h *Host) CreateChannel(name string) chan lua.LValue {
	return h.pool.createChannel(name)
}

// wireFunctions subscribes to the events the script defined functions for.
func (h *Host) wireFunctions(rr *Reroute) {
	events := h.extHost.Events
	if rr.After.MessageEvaluated != nil {
		events.AfterMessageEvaluated.AddListener(listenerName, h.handleAfterMessageEvaluated)
		h.logger.Debug().Str("phase", "startup").Msg("Registered after.message_evaluated")
	}
}

func (h *Host) handleAfterMessageEvaluated(report event.EvaluationReport) {
	logger := h.logger.With().Str("event", "after.message_evaluated").Logger()
	ls, err := h.pool.get()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to get Lua state instance from pool")
		return
	}
	defer h.pool.put(ls)

	fn := ls.reroute.After.MessageEvaluated
	if fn == nil {
		return
	}
	if err := ls.CallByParam(
		lua.P{Fn: fn, NRet: 0, Protect: true},
		wrapEvaluationReport(ls.LState, &report),
	); err != nil {
		logger.Error().Err(err).Msg("Failed to call Lua function")
	}
}
