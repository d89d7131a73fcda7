package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/vaultplan/vaultplan"
)

type summaryCmd struct {
	recent int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "summarize the on-chain ledger" }
func (*summaryCmd) Usage() string {
	return `vp summary

Prints per-type counts and totals over the on-chain ledger, followed by the
most recent entries.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.recent, "recent", 5, "Number of recent entries to preview.")
}

func (c *summaryCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Println("no arguments expected")
		return subcommands.ExitUsageError
	}

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	rows, err := store.Summary()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCOUNT\tTOTAL")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%s\n", r.Type, r.Count, vaultplan.M(r.Total, store.Currency()))
	}
	w.Flush()

	entries, err := store.Entries(c.recent)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(entries) == 0 {
		return subcommands.ExitSuccess
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTYPE\tSYMBOL\tAMOUNT\tVALUE\tACCOUNT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Date, e.Type, e.Symbol, e.Amount, e.Value, e.Account)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
