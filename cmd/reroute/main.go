// Package main implements the reroute operator command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevel = flag.String("loglevel", "warn", "debug, info, warn, or error")

// rcptFlag collects repeated -rcpt flags of the form address[:category].
type rcptFlag []*message.Recipient

func (r *rcptFlag) Set(value string) error {
	addr, cat, _ := strings.Cut(value, ":")
	category, ok := message.ParseCategory(cat)
	if !ok {
		return fmt.Errorf("unknown category %q", cat)
	}
	rcpt, err := policy.ParseRecipient(addr, category)
	if err != nil {
		return err
	}
	*r = append(*r, rcpt)
	return nil
}

func (r *rcptFlag) String() string {
	if r == nil {
		return ""
	}
	s := make([]string, len(*r))
	for i, rcpt := range *r {
		s[i] = rcpt.Address + ":" + rcpt.Category.String()
	}
	return strings.Join(s, ",")
}

// rcptFlag must implement flag.Value
var _ flag.Value = &rcptFlag{}

func main() {
	// Important top-level flags
	subcommands.ImportantFlag("loglevel")

	// Setup standard helpers
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	// Setup my commands
	subcommands.Register(&evaluateCmd{}, "")
	subcommands.Register(&validateCmd{}, "")
	subcommands.Register(&lookupCmd{}, "directory")
	subcommands.Register(&importCmd{}, "directory")

	// Parse and execute
	flag.Parse()
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		os.Exit(int(usage(err.Error())))
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// splitList splits a comma separated flag value, dropping empty entries.
func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
