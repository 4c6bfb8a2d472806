package test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cosmotek/loguago"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// LuaInit holds the globals shared by Lua test scripts.  Scripts handling events set async, so
// that failures are recorded in test_ok and sent back over a notify channel instead of raised.
const LuaInit = `
	local logger = require("logger")

	async = false
	test_ok = true

	local function fail(message)
		if async then
			logger.error(message, {from = "lua test"})
			test_ok = false
		else
			error(message, 3)
		end
	end

	-- tostring keeps nil printable in failure messages.
	local function show(v)
		if type(v) == "string" then
			return string.format("%q", v)
		end
		return tostring(v)
	end

	function assert_async(value, message)
		if not value then
			fail(message)
		end
	end

	-- Compares plain values, and list-style tables element by element.
	function assert_eq(got, want)
		if type(got) == "table" and type(want) == "table" then
			if #got ~= #want then
				fail(string.format("got %d elements, wanted %d", #got, #want))
				return
			end
			for i, gotv in ipairs(got) do
				if gotv ~= want[i] then
					fail(string.format("got[%d] = %s, wanted %s", i, show(gotv), show(want[i])))
				end
			end
			return
		end
		if got ~= want then
			fail(string.format("got %s, wanted %s", show(got), show(want)))
		end
	end

	function assert_nil(got)
		if got ~= nil then
			fail(string.format("got %s, wanted nil", show(got)))
		end
	end

	-- Verifies string got contains plain string want.
	function assert_contains(got, want)
		if type(got) ~= "string" or not string.find(got, want, 1, true) then
			fail(string.format("got %s, wanted it to contain %q", show(got), want))
		end
	end
`

// LogBuffer collects log output written by async listeners.
type LogBuffer struct {
	sync.Mutex
	b strings.Builder
}

func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.Lock()
	defer lb.Unlock()
	return lb.b.Write(p)
}

func (lb *LogBuffer) String() string {
	lb.Lock()
	defer lb.Unlock()
	return lb.b.String()
}

// NewLuaState creates a Lua LState with the logger module and the helpers in LuaInit loaded.  Log
// output of the state is collected in the returned LogBuffer.
func NewLuaState() (*lua.LState, *LogBuffer) {
	output := &LogBuffer{}
	logger := loguago.NewLogger(zerolog.New(output))

	ls := lua.NewState()
	ls.PreloadModule("logger", logger.Loader)
	if err := ls.DoString(LuaInit); err != nil {
		panic(err)
	}

	return ls, output
}

// AssertNotified requires a truthy LValue on the notify channel.
func AssertNotified(t *testing.T, notify chan lua.LValue) {
	t.Helper()
	select {
	case reslv := <-notify:
		// Lua function received event.
		if lua.LVIsFalse(reslv) {
			t.Error("Lua responded with false, wanted true")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Lua did not respond to event within timeout")
	}
}
