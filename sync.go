package vaultplan

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sync/errgroup"
)

// ChainScanner fetches transfer history for one wallet on one chain.
// Implementations must return an empty slice alongside any error; the syncer
// logs fetch failures and carries on with whatever was fetched.
type ChainScanner interface {
	NativeTransfers(address string, chainID, fromBlock int64) ([]RawTransfer, error)
	TokenTransfers(address string, tokens []string, chainID, fromBlock int64) ([]RawTransfer, error)
}

// PriceOracle resolves one display-currency rate per symbol for a sync run.
type PriceOracle interface {
	Snapshot(symbols []string) PriceSnapshot
}

// Syncer drives one synchronization cycle: every wallet account, across every
// configured chain, into the ledger. Cycles are idempotent; re-running after
// any failure resumes from the last persisted cursors.
type Syncer struct {
	Store   *Store
	Scanner ChainScanner
	Prices  PriceOracle
	Chains  []int64  // chain ids to scan per wallet
	Tokens  []string // tracked token symbols, upper-case, native included

	// Parallel bounds the number of wallets synced concurrently. Wallet
	// cursor and ledger keys are disjoint, so wallets never contend beyond
	// the store's writer lock. Defaults to 4.
	Parallel int

	// Progress receives per-wallet progress lines; defaults to stdout.
	Progress io.Writer
}

func (s *Syncer) printf(format string, args ...interface{}) {
	w := s.Progress
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, format, args...)
}

// Run synchronizes all wallet accounts once. A wallet's failure is logged and
// does not abort the remaining wallets; Run only returns an error when the
// wallet list itself cannot be read or ctx is cancelled between wallets.
func (s *Syncer) Run(ctx context.Context) error {
	wallets, err := s.Store.WalletAccounts()
	if err != nil {
		return fmt.Errorf("list wallets: %w", err)
	}
	s.printf("scanning %d wallet(s)...\n", len(wallets))

	// One snapshot for the whole run: every transfer of this cycle, however
	// old, is priced at fetch time.
	prices := s.Prices.Snapshot(s.Tokens)

	limit := s.Parallel
	if limit <= 0 {
		limit = 4
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, w := range wallets {
		if ctx.Err() != nil {
			break
		}
		w := w
		g.Go(func() error {
			if err := s.syncWallet(w.Name, *w.Wallet, prices); err != nil {
				// isolation: one wallet's failure never aborts the others
				log.Printf("sync %s: %v", w.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// syncWallet scans one wallet across all configured chains, then classifies
// and applies the combined batch. Returned errors are persistence failures;
// fetch failures are logged inside fetchChain and scan nothing.
func (s *Syncer) syncWallet(account, address string, prices PriceSnapshot) error {
	s.printf("> %s %s\n", account, address)

	var combined []RawTransfer
	for _, chainID := range s.Chains {
		last, ok, err := s.Store.LastBlock(address, chainID)
		if err != nil {
			return fmt.Errorf("read cursor chain %d: %w", chainID, err)
		}
		var from int64
		if ok {
			from = last + 1
		}

		batch := s.fetchChain(address, chainID, from)
		if len(batch) == 0 {
			// an empty fetch must not touch the cursor
			continue
		}
		// The cursor advances to the highest block seen on this chain only:
		// block numbers are not comparable across chains.
		if err := s.Store.AdvanceCursor(address, chainID, maxBlock(batch)); err != nil {
			return err
		}
		combined = append(combined, batch...)
	}

	applied := 0
	for _, t := range combined {
		e := Classify(t, account, prices)
		ok, err := s.Store.Apply(e, t.Direction, t.ChainID)
		if err != nil {
			return err
		}
		if ok {
			applied++
		}
	}
	s.printf("  %d new of %d fetched\n", applied, len(combined))

	s.adjustBalance(account, combined, prices)
	return nil
}

// fetchChain fetches one wallet's native and token transfers on one chain.
// Any fetch failure is logged and contributes nothing.
func (s *Syncer) fetchChain(address string, chainID, from int64) []RawTransfer {
	native, err := s.Scanner.NativeTransfers(address, chainID, from)
	if err != nil {
		log.Printf("fetch native %s chain %d: %v", address, chainID, err)
	}
	tokens, err := s.Scanner.TokenTransfers(address, s.Tokens, chainID, from)
	if err != nil {
		log.Printf("fetch tokens %s chain %d: %v", address, chainID, err)
	}
	return append(native, tokens...)
}

// adjustBalance reconciles the account's visible balance from the
// final-balance hint of the most recent native transfer, when it carries
// one. Best-effort: a failure here never rolls back committed ledger writes.
func (s *Syncer) adjustBalance(account string, batch []RawTransfer, prices PriceSnapshot) {
	var newest *RawTransfer
	for i := range batch {
		t := &batch[i]
		if t.Native && (newest == nil || t.Block > newest.Block) {
			newest = t
		}
	}
	if newest == nil || newest.FinalBalance == nil {
		return
	}
	balance := prices[NativeSymbol].Mul(*newest.FinalBalance)
	if err := s.Store.SetBalance(account, balance); err != nil {
		log.Printf("balance %s: %v", account, err)
		return
	}
	s.printf("  %s balance -> %s\n", account, balance)
}

func maxBlock(batch []RawTransfer) int64 {
	var max int64
	for _, t := range batch {
		if t.Block > max {
			max = t.Block
		}
	}
	return max
}
