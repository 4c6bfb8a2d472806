package luahost_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/inbucket/reroute/pkg/extension/luahost"
	"github.com/inbucket/reroute/pkg/test"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var consoleLogger = zerolog.New(zerolog.NewConsoleWriter())


func TestEmptyScript(t *testing.T) {
	script := ""
	extHost := extension.NewHost()

	_, err := luahost.NewFromReader(consoleLogger, extHost, strings.NewReader(script), "test.lua")
	require.NoError(t, err)
	assert.Empty(t, extHost.Events.AfterMessageEvaluated.Listeners())
}

func TestSyntaxError(t *testing.T) {
	extHost := extension.NewHost()
	_, err := luahost.NewFromReader(consoleLogger, extHost,
		strings.NewReader("function ("), "test.lua")
	assert.Error(t, err)
}

func TestRuntimeError(t *testing.T) {
	extHost := extension.NewHost()
	_, err := luahost.NewFromReader(consoleLogger, extHost,
		strings.NewReader(`error("startup failed")`), "test.lua")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed")
}

func TestLogger(t *testing.T) {
	script := `
		local logger = require("logger")
		logger.info("_test log entry_", {})
	`

	extHost := extension.NewHost()
	output := &strings.Builder{}
	logger := zerolog.New(output)

	_, err := luahost.NewFromReader(logger, extHost, strings.NewReader(script), "test.lua")
	require.NoError(t, err)

	assert.Contains(t, output.String(), "_test log entry_")
}

func TestJSONModule(t *testing.T) {
	script := `
		local json = require("json")
		local doc = json.decode('{"outcome": "Processed"}')
		assert(doc.outcome == "Processed", "decoded outcome")
		assert(json.encode({1, 2}) == "[1,2]", "encoded list")
	`
	_, err := luahost.NewFromReader(consoleLogger, extension.NewHost(),
		strings.NewReader(script), "test.lua")
	require.NoError(t, err)
}

func TestAfterMessageEvaluated(t *testing.T) {
	// Register lua event listener, setup notify channel.
	script := `
		async = true

		function reroute.after.message_evaluated(report)
			-- Full report bindings tested elsewhere.
			assert_eq(report.message_id, "m1@x.com")
			assert_eq(report.outcome, "Processed")
			assert_eq(report.overridden, {"a@x.com"})
			notify:send(test_ok)
		end
	`
	extHost := extension.NewHost()
	luaHost, err := luahost.NewFromReader(consoleLogger, extHost,
		strings.NewReader(test.LuaInit+script), "test.lua")
	require.NoError(t, err)
	notify := luaHost.CreateChannel("notify")
	assert.Equal(t, []string{"lua"}, extHost.Events.AfterMessageEvaluated.Listeners())

	// Send event, check channel response is true.
	report := &event.EvaluationReport{
		ID:         "01J0000000000000000000000A",
		MessageID:  "m1@x.com",
		Outcome:    "Processed",
		Overridden: []string{"a@x.com"},
		Date:       time.Date(2001, time.February, 3, 4, 5, 6, 0, time.UTC),
	}
	extHost.Events.AfterMessageEvaluated.Emit(report)
	test.AssertNotified(t, notify)
}

func TestAfterMessageEvaluatedError(t *testing.T) {
	script := `
		function reroute.after.message_evaluated(report)
			error("script failure")
		end
	`
	extHost := extension.NewHost()
	output := &test.LogBuffer{}
	logger := zerolog.New(output)
	_, err := luahost.NewFromReader(logger, extHost, strings.NewReader(script), "test.lua")
	require.NoError(t, err)

	// Listeners are asynchronous; wait for the error to be logged.
	extHost.Events.AfterMessageEvaluated.Emit(&event.EvaluationReport{})
	require.Eventually(t, func() bool {
		return strings.Contains(output.String(), "script failure")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewFromConfig(t *testing.T) {
	extHost := extension.NewHost()

	// Missing script is not an error.
	h, err := luahost.New(config.Lua{Path: filepath.Join(t.TempDir(), "none.lua")}, extHost)
	require.NoError(t, err)
	assert.Nil(t, h)

	h, err = luahost.New(config.Lua{}, extHost)
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = luahost.New(config.Lua{Path: t.TempDir()}, extHost)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "reroute.lua")
	script := `function reroute.after.message_evaluated(report) end`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))
	h, err = luahost.New(config.Lua{Path: path}, extHost)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, []string{"lua"}, extHost.Events.AfterMessageEvaluated.Listeners())
}
