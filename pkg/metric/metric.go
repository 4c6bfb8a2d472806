// Package metric publishes reroute engine counters through expvar and Prometheus.
package metric

import (
	"container/list"
	"expvar"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TickerFunc is the function signature accepted by AddTickerFunc, will be called once per minute.
type TickerFunc func()

var tickerFuncChan = make(chan TickerFunc)

// Prometheus collectors.
var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reroute_evaluations_total",
			Help: "Total number of message evaluations by outcome.",
		},
		[]string{"policy", "outcome"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reroute_evaluation_duration_seconds",
			Help:    "Wall-clock duration of message evaluations in seconds.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"policy"},
	)

	OverridesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reroute_overrides_total",
			Help: "Total number of recipient routing overrides applied.",
		},
		[]string{"policy"},
	)
)

// expvar counters, published under "reroute".
var (
	ExpEvaluationsTotal = new(expvar.Int)
	ExpOverridesTotal   = new(expvar.Int)
	ExpWarningsTotal    = new(expvar.Int)
	ExpErrorsTotal      = new(expvar.Int)
	ExpOutcomes         = new(expvar.Map).Init()

	// Comma separated per-minute history of the counters above, for charting.
	ExpEvaluationsHist = new(expvar.String)
	ExpOverridesHist   = new(expvar.String)
	ExpWarningsHist    = new(expvar.String)
	ExpErrorsHist      = new(expvar.String)
)

func init() {
	m := expvar.NewMap("reroute")
	m.Set("EvaluationsTotal", ExpEvaluationsTotal)
	m.Set("OverridesTotal", ExpOverridesTotal)
	m.Set("WarningsTotal", ExpWarningsTotal)
	m.Set("ErrorsTotal", ExpErrorsTotal)
	m.Set("Outcomes", ExpOutcomes)
	m.Set("EvaluationsHist", ExpEvaluationsHist)
	m.Set("OverridesHist", ExpOverridesHist)
	m.Set("WarningsHist", ExpWarningsHist)
	m.Set("ErrorsHist", ExpErrorsHist)

	go metricsTicker()

	evaluationsHist := list.New()
	overridesHist := list.New()
	warningsHist := list.New()
	errorsHist := list.New()
	AddTickerFunc(func() {
		ExpEvaluationsHist.Set(Push(evaluationsHist, ExpEvaluationsTotal))
		ExpOverridesHist.Set(Push(overridesHist, ExpOverridesTotal))
		ExpWarningsHist.Set(Push(warningsHist, ExpWarningsTotal))
		ExpErrorsHist.Set(Push(errorsHist, ExpErrorsTotal))
	})
}

// ObserveEvaluation records a finished evaluation.
func ObserveEvaluation(policy, outcome string, elapsed time.Duration, overrides int) {
	EvaluationsTotal.WithLabelValues(policy, outcome).Inc()
	EvaluationDuration.WithLabelValues(policy).Observe(elapsed.Seconds())
	ExpEvaluationsTotal.Add(1)
	ExpOutcomes.Add(outcome, 1)
	if overrides > 0 {
		OverridesTotal.WithLabelValues(policy).Add(float64(overrides))
		ExpOverridesTotal.Add(int64(overrides))
	}
}

// AddTickerFunc adds a new function callback to the list of metrics TickerFuncs that get
// called each minute.
func AddTickerFunc(f TickerFunc) {
	tickerFuncChan <- f
}

// Push adds the metric to the end of the list and returns a comma separated string of the
// previous 61 entries.  We return 61 instead of 60 (an hour) because the chart on the client
// tracks deltas between these values - there is nothing to compare the first value against.
func Push(history *list.List, ev expvar.Var) string {
	history.PushBack(ev.String())
	if history.Len() > 61 {
		history.Remove(history.Front())
	}
	return joinStringList(history)
}

// metricsTicker calls the current list of TickerFuncs once per minute.
func metricsTicker() {
	funcs := make([]TickerFunc, 0)
	ticker := time.NewTicker(time.Minute)

	for {
		select {
		case <-ticker.C:
			for _, f := range funcs {
				f()
			}
		case f := <-tickerFuncChan:
			funcs = append(funcs, f)
		}
	}
}

// joinStringList joins a List containing strings by commas.
func joinStringList(listOfStrings *list.List) string {
	if listOfStrings.Len() == 0 {
		return ""
	}
	s := make([]string, 0, listOfStrings.Len())
	for e := listOfStrings.Front(); e != nil; e = e.Next() {
		s = append(s, e.Value.(string))
	}
	return strings.Join(s, ",")
}
