// Package cmd implements the CLI application to manage the vaultplan ledger.
package cmd

import (
	"flag"

	"github.com/google/subcommands"
	"github.com/vaultplan/vaultplan"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&syncCmd{}, "sync")

	c.Register(&addAccountCmd{}, "accounts")
	c.Register(&listAccountsCmd{}, "accounts")
	c.Register(&setBalanceCmd{}, "accounts")

	c.Register(&summaryCmd{}, "reports")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbFile = flag.String("db-file", "vaultplan.db", "Path to the vaultplan SQLite database")
var displayCurrency = flag.String("currency", "AUD", "Display currency for ledger values")

// OpenStore is the central function to open the local database.
func OpenStore() (*vaultplan.Store, error) {
	return vaultplan.Open(*dbFile, *displayCurrency)
}
