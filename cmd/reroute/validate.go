package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/inbucket/reroute/pkg/policy"
)

type validateCmd struct{}

func (*validateCmd) Name() string {
	return "validate"
}

func (*validateCmd) Synopsis() string {
	return "check control header values"
}

func (*validateCmd) Usage() string {
	return `validate <value>...:
	report whether each value is accepted as a reroute target domain
`
}

func (*validateCmd) SetFlags(f *flag.FlagSet) {}

func (*validateCmd) Execute(
	_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return usage("value required")
	}
	status := subcommands.ExitSuccess
	for _, raw := range f.Args() {
		d := policy.ValidateTarget(raw)
		if d.Valid {
			fmt.Printf("%q: valid %s\n", raw, d.Domain)
			continue
		}
		fmt.Printf("%q: invalid: %v\n", raw, d.Reason)
		status = subcommands.ExitFailure
	}
	return status
}
