package reroute_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/inbucket/reroute/pkg/directory"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/inbucket/reroute/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

type evaluation struct {
	msg   *message.Message
	rcpts []*message.Recipient
	rc    *test.RoutingStub
}

// outcomeOf captures everything an evaluation is allowed to change.
type outcomeOf struct {
	Outcome    reroute.Outcome
	Target     string
	Overridden []string
	Routed     []string
	Header     message.HeaderList
}

func buildEvaluations(n int) []*evaluation {
	evals := make([]*evaluation, n)
	for i := range evals {
		target := fmt.Sprintf("mail%d.contoso.example", i)
		if i%5 == 4 {
			target = fmt.Sprintf("bad target %d", i)
		}
		msg := newMessage(target)
		msg.ID = fmt.Sprintf("m%d@x.com", i)
		evals[i] = &evaluation{
			msg: msg,
			rcpts: []*message.Recipient{
				{Address: fmt.Sprintf("user%d@x.com", i)},
				{Address: fmt.Sprintf("known%d@x.com", i%3)},
				{Address: fmt.Sprintf("ext%d@y.com", i)},
			},
			rc: test.NewRouting(),
		}
	}
	return evals
}

func collect(evals []*evaluation, results []reroute.Result) []outcomeOf {
	out := make([]outcomeOf, len(evals))
	for i, ev := range evals {
		out[i] = outcomeOf{
			Outcome:    results[i].Outcome,
			Target:     results[i].Target,
			Overridden: results[i].Overridden,
			Routed:     ev.rc.Overridden(),
			Header:     ev.msg.Header,
		}
	}
	return out
}

func TestConcurrentEvaluationsMatchSequential(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("github.com/inbucket/reroute/pkg/metric.metricsTicker"))

	const n = 64
	dir := test.NewDirectory(
		directory.Entry{Address: "known0@x.com", Type: directory.User},
		directory.Entry{Address: "known1@x.com", Type: directory.Group},
	)
	c, err := policy.NewClassifier(policy.RerouteUnlessInDirectory, dir)
	require.NoError(t, err)
	e := newEngine(t, c, reroute.Options{})

	sequential := buildEvaluations(n)
	seqResults := make([]reroute.Result, n)
	for i, ev := range sequential {
		seqResults[i] = e.Evaluate(context.Background(), ev.msg, ev.rcpts, ev.rc)
	}

	concurrent := buildEvaluations(n)
	conResults := make([]reroute.Result, n)
	g, ctx := errgroup.WithContext(context.Background())
	start := make(chan struct{})
	for i, ev := range concurrent {
		g.Go(func() error {
			<-start
			conResults[i] = e.Evaluate(ctx, ev.msg, ev.rcpts, ev.rc)
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, collect(sequential, seqResults), collect(concurrent, conResults))

	// Spot check that each message kept its own directive.
	for i, res := range conResults {
		if i%5 == 4 {
			assert.Equal(t, reroute.WarningInvalidDomain, res.Outcome)
			continue
		}
		assert.Equal(t, fmt.Sprintf("mail%d.contoso.example", i), res.Target)
		for _, addr := range res.Overridden {
			o, ok := concurrent[i].rc.Lookup(addr)
			require.True(t, ok)
			assert.Equal(t, res.Target, o.Domain)
		}
	}
}
