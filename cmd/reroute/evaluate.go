package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/directory"
	"github.com/inbucket/reroute/pkg/directory/sqlite"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/inbucket/reroute/pkg/routing"
	"golang.org/x/sync/errgroup"
)

type evaluateCmd struct {
	policy   string
	db       string
	stamping string
	markers  string
	debug    bool
	workers  int
	rcpts    rcptFlag
}

func (*evaluateCmd) Name() string {
	return "evaluate"
}

func (*evaluateCmd) Synopsis() string {
	return "dry-run messages through the reroute engine"
}

func (*evaluateCmd) Usage() string {
	return `evaluate [flags] -rcpt <address[:category]>... <message.eml>...:
	evaluate each message for the given recipients, print the outcome, the
	routing overrides and the stamped headers
`
}

func (e *evaluateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&e.policy, "policy", string(policy.RerouteUnlessInDirectory),
		"accept-all, exclude-directory, or exclude-intra-org")
	f.StringVar(&e.db, "db", "", "SQLite directory database (exclude-directory)")
	f.StringVar(&e.stamping, "stamping", string(config.IdempotentStamping),
		"idempotent or unconditional")
	f.StringVar(&e.markers, "markers",
		"X-ACSOnPremConnector-Creator:reroute,X-ACSOnPremConnector-Contact:postmaster",
		"additional Name:Value marker headers, comma separated")
	f.BoolVar(&e.debug, "debug", false, "log the evaluation report of processed messages")
	f.IntVar(&e.workers, "workers", 4, "messages evaluated concurrently")
	f.Var(&e.rcpts, "rcpt", "recipient address[:category], may be repeated")
}

func (e *evaluateCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage("at least one message file required")
	}
	if len(e.rcpts) == 0 {
		return usage("at least one -rcpt required")
	}

	eng, closer, err := e.engine()
	if err != nil {
		return fatal("Couldn't build engine", err)
	}
	defer closer()

	results, err := evaluateFiles(ctx, eng, f.Args(), e.rcpts, e.workers)
	if err != nil {
		return fatal("Evaluation failed", err)
	}
	for _, r := range results {
		r.print(os.Stdout)
	}
	return subcommands.ExitSuccess
}

// engine builds the Engine described by the flags, the returned func releases the directory.
func (e *evaluateCmd) engine() (*reroute.Engine, func(), error) {
	variant, err := policy.ParseVariant(e.policy)
	if err != nil {
		return nil, nil, err
	}
	var dir directory.Directory
	closer := func() {}
	if variant == policy.RerouteUnlessInDirectory {
		if e.db == "" {
			return nil, nil, fmt.Errorf("policy %s requires -db", variant)
		}
		sdir, err := sqlite.Open(e.db)
		if err != nil {
			return nil, nil, err
		}
		dir = sdir
		closer = func() { _ = sdir.Close() }
	}
	classifier, err := policy.NewClassifier(variant, dir)
	if err != nil {
		closer()
		return nil, nil, err
	}
	opts := reroute.Options{
		Stamping:     config.StampMode(e.stamping),
		DebugEnabled: e.debug,
	}
	for _, m := range config.ParseMarkers(splitList(e.markers)) {
		opts.Markers = append(opts.Markers, reroute.Marker{Name: m.Name, Value: m.Value})
	}
	eng, err := reroute.New(opts, classifier, nil)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return eng, closer, nil
}

// fileResult is the evaluation of one message file.
type fileResult struct {
	path   string
	result reroute.Result
	routes *routing.Table
}

func (r *fileResult) print(w io.Writer) {
	fmt.Fprintf(w, "%s: %s", r.path, r.result.Outcome)
	if r.result.Target != "" {
		fmt.Fprintf(w, " %s", r.result.Target)
	}
	fmt.Fprintln(w)
	for _, addr := range r.routes.Addresses() {
		o, _ := r.routes.Lookup(addr)
		fmt.Fprintf(w, "\toverride %s -> %s\n", addr, o.Domain)
	}
	for _, m := range r.result.Stamped {
		fmt.Fprintf(w, "\theader %s: %s\n", m.Name, m.Value)
	}
	if r.result.Fault != nil {
		fmt.Fprintf(w, "\tfault %v\n", r.result.Fault)
	}
}

// evaluateFiles reads and evaluates paths with up to workers evaluations in flight.  Results are
// returned in the order of paths.  Each message gets its own copy of the recipients and its own
// routing table.
func evaluateFiles(
	ctx context.Context,
	eng *reroute.Engine,
	paths []string,
	rcpts []*message.Recipient,
	workers int,
) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			msg, err := readMessage(path)
			if err != nil {
				return err
			}
			rc := routing.NewTable()
			res := eng.Evaluate(ctx, msg, cloneRecipients(rcpts), rc)
			results[i] = fileResult{path: path, result: res, routes: rc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func readMessage(path string) (*message.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	msg, err := message.ReadSource(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return msg, nil
}

func cloneRecipients(rcpts []*message.Recipient) []*message.Recipient {
	c := make([]*message.Recipient, len(rcpts))
	for i, r := range rcpts {
		rc := *r
		c[i] = &rc
	}
	return c
}
