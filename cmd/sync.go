package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/vaultplan/vaultplan"
)

type syncCmd struct {
	chains   string
	tokens   string
	usdRate  float64
	parallel int
}

func (*syncCmd) Name() string { return "sync" }
func (*syncCmd) Synopsis() string {
	return "synchronize on-chain wallet transfers into the local ledger"
}
func (*syncCmd) Usage() string {
	return `vp sync

Scans every wallet account across the configured chains, classifies and
prices new transfers, and records them in the local ledger. The scan resumes
from the last processed block per wallet and chain, so re-running is always
safe: transfers already recorded are skipped.

Requires an Etherscan API key set via the --etherscan-api-key flag or the
ETHERSCAN_API_KEY environment variable.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.chains, "chains", "1", "Comma-separated chain ids to scan.")
	f.StringVar(&c.tokens, "tokens", "ETH,DEGEN,USDC", "Comma-separated token symbols to track.")
	f.Float64Var(&c.usdRate, "usd-rate", 1.54, "Display-currency units per USD, used to convert snapshot prices.")
	f.IntVar(&c.parallel, "parallel", 4, "Maximum wallets synced concurrently.")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Println("no arguments expected")
		return subcommands.ExitUsageError
	}

	chains, err := parseChains(c.chains)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	store, err := OpenStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	syncer := &vaultplan.Syncer{
		Store:    store,
		Scanner:  vaultplan.NewEtherscanClient(vaultplan.EtherscanApiKey(), "", 0),
		Prices:   vaultplan.NewDexscreenerClient("", *displayCurrency, c.usdRate, 0),
		Chains:   chains,
		Tokens:   parseTokens(c.tokens),
		Parallel: c.parallel,
	}
	if err := syncer.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sync failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parseChains(s string) ([]int64, error) {
	var chains []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q", part)
		}
		chains = append(chains, id)
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no chains configured")
	}
	return chains, nil
}

func parseTokens(s string) []string {
	var tokens []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}
