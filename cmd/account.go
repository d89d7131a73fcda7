package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type addAccountCmd struct {
	typ     string
	balance float64
	wallet  string
}

func (*addAccountCmd) Name() string     { return "add-account" }
func (*addAccountCmd) Synopsis() string { return "create a local account" }
func (*addAccountCmd) Usage() string {
	return `vp add-account [-type <type>] [-balance <amount>] [-wallet <0x...>] <name>

Creates an account. Accounts of type wallet with a 0x address are picked up
by 'vp sync' and scanned for on-chain transfers.
`
}

func (c *addAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", "bank", "Account type: bank | wallet | cash | other.")
	f.Float64Var(&c.balance, "balance", 0, "Opening balance in the display currency.")
	f.StringVar(&c.wallet, "wallet", "", "0x address for on-chain wallets.")
}

func (c *addAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Println("expected exactly one account name")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	if err := store.AddAccount(name, c.typ, c.balance, c.wallet); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("created account %q (%s)\n", name, c.typ)
	return subcommands.ExitSuccess
}

type listAccountsCmd struct{}

func (*listAccountsCmd) Name() string             { return "accounts" }
func (*listAccountsCmd) Synopsis() string         { return "list local accounts" }
func (*listAccountsCmd) Usage() string            { return "vp accounts\n" }
func (*listAccountsCmd) SetFlags(f *flag.FlagSet) {}

func (c *listAccountsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	accounts, err := store.Accounts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tBALANCE\tWALLET")
	for _, a := range accounts {
		wallet := ""
		if a.Wallet != nil {
			wallet = *a.Wallet
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Type, a.Balance, wallet)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
