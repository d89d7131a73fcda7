package vaultplan

import (
	"context"
	"io"
	"reflect"
	"testing"

	"github.com/vaultplan/vaultplan/date"
)

type fakeScanner struct {
	native func(address string, chainID, fromBlock int64) ([]RawTransfer, error)
	token  func(address string, tokens []string, chainID, fromBlock int64) ([]RawTransfer, error)
}

func (f *fakeScanner) NativeTransfers(address string, chainID, fromBlock int64) ([]RawTransfer, error) {
	if f.native == nil {
		return nil, nil
	}
	return f.native(address, chainID, fromBlock)
}

func (f *fakeScanner) TokenTransfers(address string, tokens []string, chainID, fromBlock int64) ([]RawTransfer, error) {
	if f.token == nil {
		return nil, nil
	}
	return f.token(address, tokens, chainID, fromBlock)
}

type fakeOracle struct{ prices PriceSnapshot }

func (f *fakeOracle) Snapshot(symbols []string) PriceSnapshot { return f.prices }

func newTestSyncer(s *Store, scanner ChainScanner, prices PriceSnapshot) *Syncer {
	return &Syncer{
		Store:    s,
		Scanner:  scanner,
		Prices:   &fakeOracle{prices: prices},
		Chains:   []int64{1},
		Tokens:   []string{"ETH", "DEGEN", "USDC"},
		Progress: io.Discard,
	}
}

func nativeIn(hash string, block int64, amount float64) RawTransfer {
	return RawTransfer{
		Hash:      hash,
		Date:      date.New(2025, 2, 3),
		Symbol:    NativeSymbol,
		Amount:    A(amount),
		Direction: In,
		Block:     block,
		ChainID:   1,
		Native:    true,
	}
}

// TestSyncer_Scenario is the canonical cycle: empty cursor, one native
// transfer in at block 100, run twice.
func TestSyncer_Scenario(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "hot", "0xW")

	var fetchedFrom []int64
	scanner := &fakeScanner{
		native: func(address string, chainID, fromBlock int64) ([]RawTransfer, error) {
			fetchedFrom = append(fetchedFrom, fromBlock)
			if fromBlock > 100 {
				return nil, nil
			}
			return []RawTransfer{nativeIn("0xabc1234567", 100, 1.0)}, nil
		},
	}
	syncer := newTestSyncer(s, scanner, PriceSnapshot{"ETH": AUD(10)})

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// cursor advanced to the fetched block
	block, ok, err := s.LastBlock("0xW", 1)
	if err != nil || !ok || block != 100 {
		t.Fatalf("LastBlock() = %d, %v, %v, want 100", block, ok, err)
	}

	// one income entry at the native rate
	entries, err := s.Entries(0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Entries() returned %d rows, want 1", len(entries))
	}
	if entries[0].Type != Income {
		t.Errorf("entry type = %v, want income", entries[0].Type)
	}
	if !entries[0].Value.Equal(AUD(10)) {
		t.Errorf("entry value = %v, want %v", entries[0].Value, AUD(10))
	}

	// second run resumes from cursor+1 and changes nothing
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() second error = %v", err)
	}
	if want := []int64{0, 101}; !reflect.DeepEqual(fetchedFrom, want) {
		t.Errorf("fetched from blocks %v, want %v", fetchedFrom, want)
	}
	again, err := s.Entries(0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if !reflect.DeepEqual(again, entries) {
		t.Errorf("second run changed the ledger:\n got %+v\nwant %+v", again, entries)
	}
	if block, _, _ := s.LastBlock("0xW", 1); block != 100 {
		t.Errorf("second run moved cursor to %d, want 100", block)
	}
}

// TestSyncer_Idempotence re-applies an identical remote fixture and expects
// an identical ledger, even when the cursor table is reset between runs.
func TestSyncer_Idempotence(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "hot", "0xW")

	batch := []RawTransfer{
		nativeIn("0xaaa1111111", 100, 1.0),
		{Hash: "0xbbb2222222", Date: date.New(2025, 2, 4), Symbol: "DEGEN", Amount: A(5),
			Direction: Out, Block: 101, ChainID: 1},
	}
	scanner := &fakeScanner{
		native: func(_ string, _, _ int64) ([]RawTransfer, error) { return batch[:1], nil },
		token:  func(_ string, _ []string, _, _ int64) ([]RawTransfer, error) { return batch[1:], nil },
	}
	syncer := newTestSyncer(s, scanner, PriceSnapshot{"ETH": AUD(10), "DEGEN": AUD(2)})

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	first, err := s.Entries(0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("Entries() returned %d rows, want 2", len(first))
	}

	// the scanner serves the very same batch again (cursor ignored)
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() second error = %v", err)
	}
	second, err := s.Entries(0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if !reflect.DeepEqual(second, first) {
		t.Errorf("re-run changed the ledger:\n got %+v\nwant %+v", second, first)
	}
}

// TestSyncer_CursorPerChain checks that a chain's cursor only advances with
// blocks observed on that chain.
func TestSyncer_CursorPerChain(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "hot", "0xW")

	scanner := &fakeScanner{
		native: func(_ string, chainID, _ int64) ([]RawTransfer, error) {
			switch chainID {
			case 1:
				return []RawTransfer{nativeIn("0xccc3333333", 100, 1)}, nil
			case 8453:
				tr := nativeIn("0xddd4444444", 5, 1)
				tr.ChainID = 8453
				return []RawTransfer{tr}, nil
			}
			return nil, nil
		},
	}
	syncer := newTestSyncer(s, scanner, PriceSnapshot{"ETH": AUD(10)})
	syncer.Chains = []int64{1, 8453}

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if block, _, _ := s.LastBlock("0xW", 1); block != 100 {
		t.Errorf("cursor chain 1 = %d, want 100", block)
	}
	// the low-block chain must not inherit the other chain's high block
	if block, _, _ := s.LastBlock("0xW", 8453); block != 5 {
		t.Errorf("cursor chain 8453 = %d, want 5", block)
	}
}

// TestSyncer_EmptyFetch checks that a cycle with nothing fetched leaves no
// cursor behind and no entries.
func TestSyncer_EmptyFetch(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "hot", "0xW")

	syncer := newTestSyncer(s, &fakeScanner{}, PriceSnapshot{})
	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, ok, _ := s.LastBlock("0xW", 1); ok {
		t.Error("empty fetch created a cursor")
	}
	entries, _ := s.Entries(0)
	if len(entries) != 0 {
		t.Errorf("empty fetch produced %d entries", len(entries))
	}
}

// TestSyncer_WalletIsolation checks that one wallet's fetch failure does not
// abort the remaining wallets.
func TestSyncer_WalletIsolation(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "broken", "0xA")
	mustAddWallet(t, s, "hot", "0xB")

	scanner := &fakeScanner{
		native: func(address string, _, _ int64) ([]RawTransfer, error) {
			if address == "0xA" {
				return nil, context.DeadlineExceeded
			}
			return []RawTransfer{nativeIn("0xeee5555555", 7, 1)}, nil
		},
	}
	syncer := newTestSyncer(s, scanner, PriceSnapshot{"ETH": AUD(10)})

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := s.Entries(0)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Account != "hot" {
		t.Fatalf("Entries() = %+v, want one entry for hot", entries)
	}
	if _, ok, _ := s.LastBlock("0xA", 1); ok {
		t.Error("failed wallet grew a cursor")
	}
}

// TestSyncer_BalanceHint checks that the newest native transfer's
// final-balance hint reconciles the account balance at the snapshot rate.
func TestSyncer_BalanceHint(t *testing.T) {
	s := newTestStore(t)
	mustAddWallet(t, s, "hot", "0xW")

	older := nativeIn("0xf111111111", 90, 1)
	hinted := nativeIn("0xf222222222", 100, 1)
	bal := A(2)
	hinted.FinalBalance = &bal

	scanner := &fakeScanner{
		native: func(_ string, _, _ int64) ([]RawTransfer, error) {
			return []RawTransfer{older, hinted}, nil
		},
	}
	syncer := newTestSyncer(s, scanner, PriceSnapshot{"ETH": AUD(10)})

	if err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	accounts, err := s.Accounts()
	if err != nil {
		t.Fatalf("Accounts() error = %v", err)
	}
	if got := accounts[0].Balance.String(); got != "20" {
		t.Errorf("balance = %s, want 20 (2 ETH at rate 10)", got)
	}
}
