package msghub

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testListener implements the Listener interface, mock for unit tests
type testListener struct {
	reports    []*event.EvaluationReport // received reports
	wantEvents int                       // how many events this listener wants to receive
	errorAfter int                       // when != 0, event count until Receive() begins returning error
	gotEvents  int

	done     chan struct{} // closed once we have received wantEvents
	overflow chan struct{} // closed if we receive wantEvents+1
}

func newTestListener(want int) *testListener {
	l := &testListener{
		reports:    make([]*event.EvaluationReport, 0, want*2),
		wantEvents: want,
		done:       make(chan struct{}),
		overflow:   make(chan struct{}),
	}
	if want == 0 {
		close(l.done)
	}
	return l
}

// Receive a report, store it in the reports slice, close applicable channels, and return an error
// if instructed
func (l *testListener) Receive(report event.EvaluationReport) error {
	l.gotEvents++
	l.reports = append(l.reports, &report)
	if l.gotEvents == l.wantEvents {
		close(l.done)
	}
	if l.gotEvents == l.wantEvents+1 {
		close(l.overflow)
	}
	if l.errorAfter > 0 && l.gotEvents > l.errorAfter {
		return errors.New("too many reports")
	}
	return nil
}

// String formats the got vs wanted report counts
func (l *testListener) String() string {
	return fmt.Sprintf("got %v reports, wanted %v", len(l.reports), l.wantEvents)
}

func startHub(t *testing.T, historyLen int) (*Hub, *extension.Host) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	extHost := extension.NewHost()
	hub := New(historyLen, extHost)
	go hub.Start(ctx)
	return hub, extHost
}

func TestHubNew(t *testing.T) {
	extHost := extension.NewHost()
	hub := New(5, extHost)
	require.NotNil(t, hub)
	assert.Equal(t, []string{"msghub"}, extHost.Events.AfterMessageEvaluated.Listeners())
}

func TestHubZeroLen(t *testing.T) {
	hub, _ := startHub(t, 0)
	r := event.EvaluationReport{}
	for i := 0; i < 100; i++ {
		hub.Dispatch(r)
	}
	assert.Empty(t, hub.Recent())
}

func TestHubOneListener(t *testing.T) {
	hub, _ := startHub(t, 5)
	l := newTestListener(1)

	hub.AddListener(l)
	hub.Dispatch(event.EvaluationReport{Outcome: "Processed"})

	// Wait for reports
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Error("Timeout:", l)
	}
}

func TestHubRemoveListener(t *testing.T) {
	hub, _ := startHub(t, 5)
	r := event.EvaluationReport{}
	l := newTestListener(1)

	hub.AddListener(l)
	hub.Dispatch(r)
	hub.RemoveListener(l)
	hub.Dispatch(r)
	hub.Sync()

	select {
	case <-l.overflow:
		t.Error(l)
	case <-time.After(50 * time.Millisecond):
		// Expected result, no overflow
	}
}

func TestHubRemoveListenerOnError(t *testing.T) {
	hub, _ := startHub(t, 5)
	r := event.EvaluationReport{}

	// error after 1 means listener should receive 2 reports before being removed
	l := newTestListener(2)
	l.errorAfter = 1

	hub.AddListener(l)
	hub.Dispatch(r)
	hub.Dispatch(r)
	hub.Dispatch(r)
	hub.Dispatch(r)
	hub.Sync()

	select {
	case <-l.overflow:
		t.Error(l)
	case <-time.After(50 * time.Millisecond):
		// Expected result, no overflow
	}
}

func TestHubHistoryReplayWrap(t *testing.T) {
	hub, _ := startHub(t, 5)
	l1 := newTestListener(20)
	hub.AddListener(l1)

	// Broadcast more reports than the hub can hold
	reports := make([]event.EvaluationReport, 20)
	for i := range reports {
		reports[i] = event.EvaluationReport{MessageID: fmt.Sprintf("m%v@x.com", i)}
		hub.Dispatch(reports[i])
	}

	// Wait for reports (live)
	select {
	case <-l1.done:
	case <-time.After(time.Second):
		t.Fatal("Timeout:", l1)
	}

	// Add a new listener
	l2 := newTestListener(5)
	hub.AddListener(l2)

	// Wait for reports (history)
	select {
	case <-l2.done:
	case <-time.After(time.Second):
		t.Fatal("Timeout:", l2)
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, reports[i+15].MessageID, l2.reports[i].MessageID, "report %v", i)
	}
}

func TestHubRecent(t *testing.T) {
	hub, _ := startHub(t, 3)
	for i := 0; i < 4; i++ {
		hub.Dispatch(event.EvaluationReport{ID: fmt.Sprint(i)})
	}

	got := hub.Recent()
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[2].ID)
}

func TestHubReceivesEngineEvents(t *testing.T) {
	hub, extHost := startHub(t, 5)
	l := newTestListener(1)
	hub.AddListener(l)

	extHost.Events.AfterMessageEvaluated.Emit(&event.EvaluationReport{Outcome: "Error"})

	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("Timeout:", l)
	}
	hub.Sync()
	assert.Equal(t, "Error", l.reports[0].Outcome)
}

func TestHubContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := New(5, extension.NewHost())
	go hub.Start(ctx)
	l := newTestListener(1)

	hub.AddListener(l)
	hub.Dispatch(event.EvaluationReport{})
	hub.Sync()
	cancel()

	select {
	case <-l.overflow:
		t.Error(l)
	case <-time.After(50 * time.Millisecond):
		// Expected result, no overflow
	}
}
