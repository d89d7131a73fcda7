package vaultplan

import (
	"fmt"

	"github.com/vaultplan/vaultplan/date"
)

// NativeSymbol is the symbol recorded for the chain's base asset. Every
// configured chain is EVM-derived and its gas token is recorded as ETH.
const NativeSymbol = "ETH"

// Direction is the side of a transfer relative to the scanned wallet.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// EntryType classifies a ledger entry.
type EntryType string

const (
	// Income is a native-currency transfer received by the wallet.
	Income EntryType = "income"
	// Swap is every other transfer: native out, and tokens in either
	// direction. A token received is indistinguishable from a token swapped,
	// so both are recorded as swaps.
	Swap EntryType = "swap"
)

// RawTransfer is one on-chain transfer as fetched from the explorer. It is
// transient: created per fetch, discarded once classified and applied.
type RawTransfer struct {
	Hash      string
	Date      date.Date
	Symbol    string
	Amount    Amount
	Direction Direction
	Block     int64
	ChainID   int64
	Native    bool

	// FinalBalance, when non-nil, is the wallet's native balance after the
	// most recent native transfer of a fetch. The orchestrator forwards it,
	// priced, to the account balance.
	FinalBalance *Amount
}

// LedgerEntry is one durable, classified, priced record of a processed
// transfer. Entries are immutable once written.
type LedgerEntry struct {
	Date        date.Date
	Type        EntryType
	Symbol      string
	Amount      Amount
	Price       Money
	Value       Money
	Account     string
	Description string
	Hash        string
}

// PriceSnapshot maps token symbols to their display-currency rate. A snapshot
// is computed once per sync run and reused for every transfer in that run,
// historical ones included: price-at-time reflects fetch time, not transfer
// time. A known accuracy limitation, kept because downstream reports depend
// on the numbers it produces.
type PriceSnapshot map[string]Money

// Classify turns a raw transfer into the ledger entry it will be recorded as.
// A native transfer received is income; everything else is a swap. A symbol
// absent from the snapshot values at zero rather than failing the cycle.
func Classify(t RawTransfer, account string, prices PriceSnapshot) LedgerEntry {
	typ := Swap
	if t.Symbol == NativeSymbol && t.Direction == In {
		typ = Income
	}
	price := prices[t.Symbol]
	return LedgerEntry{
		Date:        t.Date,
		Type:        typ,
		Symbol:      t.Symbol,
		Amount:      t.Amount,
		Price:       price,
		Value:       price.Mul(t.Amount),
		Account:     account,
		Description: fmt.Sprintf("%s %s %s", t.Symbol, typ, shortHash(t.Hash)),
		Hash:        t.Hash,
	}
}

// shortHash returns the first 8 characters of the hash string as fetched.
func shortHash(hash string) string {
	if len(hash) <= 8 {
		return hash
	}
	return hash[:8]
}
