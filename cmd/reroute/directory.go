package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/inbucket/reroute/pkg/directory"
	"github.com/inbucket/reroute/pkg/directory/sqlite"
)

type lookupCmd struct {
	db string
}

func (*lookupCmd) Name() string {
	return "lookup"
}

func (*lookupCmd) Synopsis() string {
	return "look up addresses in a directory database"
}

func (*lookupCmd) Usage() string {
	return `lookup -db <path> <address>...:
	print the recipient type of each address, or NotFound
`
}

func (l *lookupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.db, "db", "", "SQLite directory database")
}

func (l *lookupCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if l.db == "" || f.NArg() == 0 {
		return usage("-db and at least one address required")
	}
	dir, err := sqlite.Open(l.db)
	if err != nil {
		return fatal("Couldn't open directory", err)
	}
	defer dir.Close()

	for _, addr := range f.Args() {
		e, err := dir.Find(ctx, addr)
		switch {
		case errors.Is(err, directory.ErrNotFound):
			fmt.Printf("%s: NotFound\n", addr)
		case err != nil:
			return fatal("Lookup failed", err)
		default:
			fmt.Printf("%s: %s\n", e.Address, e.Type)
		}
	}
	return subcommands.ExitSuccess
}

type importCmd struct {
	db string
}

func (*importCmd) Name() string {
	return "import"
}

func (*importCmd) Synopsis() string {
	return "load addresses into a directory database"
}

func (*importCmd) Usage() string {
	return `import -db <path> <file>:
	read "address type" lines from file (- for stdin) into the directory
`
}

func (i *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&i.db, "db", "", "SQLite directory database, created if missing")
}

func (i *importCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if i.db == "" || f.NArg() != 1 {
		return usage("-db and one file required")
	}
	in := os.Stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return fatal("Couldn't open input", err)
		}
		defer file.Close()
		in = file
	}

	dir, err := sqlite.Open(i.db)
	if err != nil {
		return fatal("Couldn't open directory", err)
	}
	defer dir.Close()

	n, err := dir.Import(ctx, in)
	if err != nil {
		return fatal("Import failed", err)
	}
	fmt.Printf("Imported %d entries\n", n)
	return subcommands.ExitSuccess
}
