package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/vaultplan/vaultplan"
)

type setBalanceCmd struct{}

func (*setBalanceCmd) Name() string     { return "set-balance" }
func (*setBalanceCmd) Synopsis() string { return "set an account balance to an absolute value" }
func (*setBalanceCmd) Usage() string {
	return `vp set-balance <name> <amount>

Sets the account's balance to an absolute amount in the display currency.
The sync command uses the same adjustment to reconcile wallet balances after
a scan.
`
}
func (*setBalanceCmd) SetFlags(f *flag.FlagSet) {}

func (c *setBalanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Println("expected an account name and an amount")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	amount, err := strconv.ParseFloat(f.Arg(1), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid amount %q\n", f.Arg(1))
		return subcommands.ExitUsageError
	}

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	balance := vaultplan.M(amount, store.Currency())
	if err := store.SetBalance(name, balance); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s balance -> %s\n", name, balance)
	return subcommands.ExitSuccess
}
