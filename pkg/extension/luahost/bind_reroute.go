package luahost

import (
	"errors"
	"fmt"

	"github.com/inbucket/reroute/pkg/policy"
	lua "github.com/yuin/gopher-lua"
)

const (
	rerouteName      = "reroute"
	rerouteAfterName = "reroute_after"
)

// Reroute is the Go side of the reroute global in each LState.
type Reroute struct {
	After RerouteAfterFuncs
}

// RerouteAfterFuncs holds the functions scripts assigned to reroute.after.
type RerouteAfterFuncs struct {
	MessageEvaluated *lua.LFunction
}

func registerRerouteTypes(ls *lua.LState) {
	// reroute type.
	mt := ls.NewTypeMetatable(rerouteName)
	ls.SetField(mt, "__index", ls.NewFunction(rerouteIndex))

	// reroute.after type.
	mt = ls.NewTypeMetatable(rerouteAfterName)
	ls.SetField(mt, "__index", ls.NewFunction(rerouteAfterIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(rerouteAfterNewIndex))

	// reroute global.
	ud := wrapReroute(ls, &Reroute{})
	ls.SetGlobal(rerouteName, ud)
}

func wrapReroute(ls *lua.LState, val *Reroute) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(rerouteName))

	return ud
}

func wrapRerouteAfter(ls *lua.LState, val *RerouteAfterFuncs) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(rerouteAfterName))

	return ud
}

func getReroute(ls *lua.LState) (*Reroute, error) {
	lv := ls.GetGlobal(rerouteName)
	if lv == nil {
		return nil, errors.New("reroute object was nil")
	}

	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, fmt.Errorf("reroute object was type %s instead of UserData", lv.Type())
	}

	val, ok := ud.Value.(*Reroute)
	if !ok {
		return nil, fmt.Errorf("reroute object (%v) could not be cast", ud.Value)
	}

	return val, nil
}

func checkReroute(ls *lua.LState, pos int) *Reroute {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*Reroute); ok {
		return val
	}
	ls.ArgError(pos, rerouteName+" expected")
	return nil
}

func checkRerouteAfter(ls *lua.LState, pos int) *RerouteAfterFuncs {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*RerouteAfterFuncs); ok {
		return val
	}
	ls.ArgError(pos, rerouteAfterName+" expected")
	return nil
}

// reroute getter.
func rerouteIndex(ls *lua.LState) int {
	rr := checkReroute(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "after":
		ls.Push(wrapRerouteAfter(ls, &rr.After))
	case "validate_target":
		ls.Push(ls.NewFunction(rerouteValidateTarget))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// reroute.validate_target(value) returns the normalized domain, or nil and the reason.
func rerouteValidateTarget(ls *lua.LState) int {
	d := policy.ValidateTarget(ls.CheckString(1))
	if !d.Valid {
		ls.Push(lua.LNil)
		ls.Push(lua.LString(d.Reason.Error()))
		return 2
	}
	ls.Push(lua.LString(d.Domain))
	return 1
}

// reroute.after getter.
func rerouteAfterIndex(ls *lua.LState) int {
	after := checkRerouteAfter(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "message_evaluated":
		ls.Push(funcOrNil(after.MessageEvaluated))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// reroute.after setter.
func rerouteAfterNewIndex(ls *lua.LState) int {
	m := checkRerouteAfter(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "message_evaluated":
		m.MessageEvaluated = ls.CheckFunction(3)
	default:
		ls.RaiseError("invalid reroute.after index %q", index)
	}

	return 0
}

func funcOrNil(f *lua.LFunction) lua.LValue {
	if f == nil {
		return lua.LNil
	}

	return f
}
