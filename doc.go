// Package vaultplan provides the engine behind the `vp` command-line tool, a
// local-first personal-finance ledger for on-chain wallets.
//
// The core is the wallet synchronization engine: it pulls native and token
// transfer history for every wallet account across the configured chains,
// deduplicates and classifies each transfer, prices it against a per-run
// snapshot, and commits it into a local SQLite ledger while advancing a
// resumable per-wallet-per-chain scan cursor. Re-running a sync is always
// safe: already-seen transfers are no-ops and cursors only move forward.
//
// Around the engine the package keeps the small amount of account state the
// sync needs: wallet accounts (name and 0x address), their display-currency
// balances, and summary queries over the accumulated ledger.
package vaultplan
