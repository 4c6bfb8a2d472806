package reroute

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Report collects the log entries of one evaluation and writes them out as a single event.
type Report struct {
	entries []string
	errs    []error
}

// Appendf adds a text entry.
func (r *Report) Appendf(format string, args ...any) {
	r.entries = append(r.entries, fmt.Sprintf(format, args...))
}

// AppendError adds an error entry.
func (r *Report) AppendError(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Entries returns the text entries in the order they were added.
func (r *Report) Entries() []string {
	return r.entries
}

// Finalize emits the one terminal log event for res.  Debug severity is only written when
// debugEnabled is set; it returns false when nothing was written.
func (r *Report) Finalize(logger zerolog.Logger, res *Result, debugEnabled bool) bool {
	var ev *zerolog.Event
	severity := res.Outcome.Severity()
	switch severity {
	case SeverityError:
		ev = logger.Error()
		if res.Fault != nil {
			ev = ev.Err(res.Fault).Str("stage", string(res.Fault.Stage))
			if len(res.Fault.Stack) > 0 {
				ev = ev.Bytes("stack", res.Fault.Stack)
			}
		}
	case SeverityWarning:
		ev = logger.Warn()
	default:
		if !debugEnabled {
			return false
		}
		ev = logger.Info()
	}
	if len(r.errs) > 0 {
		ev = ev.Errs("errors", r.errs)
	}
	ev.Str("id", res.ID.String()).
		Str("messageid", res.MessageID).
		Str("outcome", res.Outcome.String()).
		Dur("elapsed", res.Elapsed).
		Strs("entries", r.entries).
		Msgf("Evaluation finished with %s", severity)
	return true
}
