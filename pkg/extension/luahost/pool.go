package luahost

import (
	"net/http"
	"sync"

	"github.com/cjoudrey/gluahttp"
	"github.com/cosmotek/loguago"
	json "github.com/inbucket/gopher-json"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// luaState is a pooled LState together with the reroute binding its script populated.
type luaState struct {
	*lua.LState
	reroute *Reroute
}

// statePool hands out LStates that have already run the compiled script, so the functions the
// script assigned to reroute.after are ready to call.
type statePool struct {
	mu        sync.Mutex
	logger    zerolog.Logger             // Exported to scripts as the logger module.
	funcProto *lua.FunctionProto         // Compiled script.
	idle      []*luaState                // States available for checkout.
	channels  map[string]chan lua.LValue // Globals set on every new state.
}

func newStatePool(logger zerolog.Logger, funcProto *lua.FunctionProto) *statePool {
	return &statePool{
		logger:    logger,
		funcProto: funcProto,
		channels:  make(map[string]chan lua.LValue),
	}
}

// newState builds an LState with the native modules, channels and reroute types, then runs the
// script in it.  mu must be held.
func (p *statePool) newState() (*luaState, error) {
	ls := lua.NewState()
	ls.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{}).Loader)
	ls.PreloadModule("json", json.Loader)
	ls.PreloadModule("logger", loguago.NewLogger(p.logger).Loader)
	for name, ch := range p.channels {
		ls.SetGlobal(name, lua.LChannel(ch))
	}
	registerRerouteTypes(ls)
	registerEvaluationReportType(ls)

	ls.Push(ls.NewFunctionFromProto(p.funcProto))
	if err := ls.PCall(0, lua.MultRet, nil); err != nil {
		ls.Close()
		return nil, err
	}
	rr, err := getReroute(ls)
	if err != nil {
		ls.Close()
		return nil, err
	}

	return &luaState{LState: ls, reroute: rr}, nil
}

// get checks out an idle state, creating one when none is idle.
func (p *statePool) get() (*luaState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.idle)
	if n == 0 {
		return p.newState()
	}
	s := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return s, nil
}

// put returns s to the pool with an empty stack.  Closed states are dropped.
func (p *statePool) put(s *luaState) {
	if s.IsClosed() {
		return
	}
	s.Pop(s.GetTop())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle = append(p.idle, s)
}

// createChannel makes a channel that becomes the named global in states created from now on.
// Idle states are closed so they get replaced; states checked out at the time keep running
// without the global and return to the pool as they are.
func (p *statePool) createChannel(name string) chan lua.LValue {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan lua.LValue, 10)
	p.channels[name] = ch
	for _, s := range p.idle {
		s.Close()
	}
	p.idle = p.idle[:0]

	return ch
}
