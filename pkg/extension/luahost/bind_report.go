package luahost

import (
	"github.com/inbucket/reroute/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const evaluationReportName = "evaluation_report"

func registerEvaluationReportType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(evaluationReportName)
	ls.SetGlobal(evaluationReportName, mt)

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(evaluationReportIndex))
}

func wrapEvaluationReport(ls *lua.LState, val *event.EvaluationReport) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(evaluationReportName))

	return ud
}

func checkEvaluationReport(ls *lua.LState, pos int) *event.EvaluationReport {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.EvaluationReport); ok {
		return v
	}
	ls.ArgError(pos, evaluationReportName+" expected")
	return nil
}

// Gets a field value from EvaluationReport user object.  Reports are read-only; the evaluation
// has already finished when scripts see them.
func evaluationReportIndex(ls *lua.LState) int {
	r := checkEvaluationReport(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "id":
		ls.Push(lua.LString(r.ID))
	case "message_id":
		ls.Push(lua.LString(r.MessageID))
	case "sender":
		ls.Push(lua.LString(r.Sender))
	case "subject":
		ls.Push(lua.LString(r.Subject))
	case "policy":
		ls.Push(lua.LString(r.Policy))
	case "outcome":
		ls.Push(lua.LString(r.Outcome))
	case "severity":
		ls.Push(lua.LString(r.Severity))
	case "target":
		ls.Push(lua.LString(r.Target))
	case "overridden":
		ls.Push(stringTable(r.Overridden))
	case "stamped":
		ls.Push(stringTable(r.Stamped))
	case "elapsed_ms":
		ls.Push(lua.LNumber(float64(r.Elapsed.Microseconds()) / 1000))
	case "fault":
		ls.Push(lua.LString(r.Fault))
	case "date":
		ls.Push(lua.LNumber(r.Date.Unix()))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

func stringTable(values []string) *lua.LTable {
	lt := &lua.LTable{}
	for _, v := range values {
		lt.Append(lua.LString(v))
	}
	return lt
}
