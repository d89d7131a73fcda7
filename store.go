package vaultplan

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vaultplan/vaultplan/date"
)

// schema creates the four persistent structures: the account list, the scan
// cursors, the ledger, and the seen-set. Decimal columns are stored as TEXT
// so values round-trip exactly.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	name    TEXT PRIMARY KEY,
	type    TEXT NOT NULL,
	balance TEXT NOT NULL DEFAULT '0',
	wallet  TEXT
);
CREATE TABLE IF NOT EXISTS scan_state (
	wallet     TEXT,
	chain_id   INTEGER,
	last_block INTEGER,
	PRIMARY KEY (wallet, chain_id)
);
CREATE TABLE IF NOT EXISTS ledger (
	date          TEXT,
	type          TEXT,
	symbol        TEXT,
	amount_token  TEXT,
	price_at_time TEXT,
	value_fiat    TEXT,
	account       TEXT,
	description   TEXT,
	hash          TEXT,
	PRIMARY KEY (hash, account)
);
CREATE TABLE IF NOT EXISTS seen_tx (
	hash      TEXT,
	direction TEXT,
	account   TEXT,
	chain_id  INTEGER,
	date      TEXT,
	PRIMARY KEY (hash, direction)
);`

// Store is the durable state of the ledger: accounts, scan cursors, ledger
// entries, and the seen-set, in one local SQLite database.
type Store struct {
	db  *sqlx.DB
	cur string // display currency code
}

// Open opens (creating if needed) the database at path. Ledger values are
// reported in the given display currency.
func Open(path, currency string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single connection serializes writers; concurrent wallet syncs then
	// cannot interleave inside an apply transaction.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, cur: currency}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Currency returns the display currency code of the store.
func (s *Store) Currency() string { return s.cur }

// Account is one local account. Wallet is nil unless the account is linked
// to an on-chain address.
type Account struct {
	Name    string          `db:"name"`
	Type    string          `db:"type"`
	Balance decimal.Decimal `db:"balance"`
	Wallet  *string         `db:"wallet"`
}

// AddAccount creates an account. wallet may be empty for off-chain accounts.
func (s *Store) AddAccount(name, typ string, balance float64, wallet string) error {
	var w *string
	if wallet != "" {
		w = &wallet
	}
	_, err := s.db.Exec(
		`INSERT INTO accounts (name, type, balance, wallet) VALUES (?, ?, ?, ?)`,
		name, typ, decimal.NewFromFloat(balance), w,
	)
	if err != nil {
		return fmt.Errorf("add account %q: %w", name, err)
	}
	return nil
}

// Accounts returns all accounts, by name.
func (s *Store) Accounts() ([]Account, error) {
	var accounts []Account
	if err := s.db.Select(&accounts, `SELECT name, type, balance, wallet FROM accounts ORDER BY name`); err != nil {
		return nil, err
	}
	return accounts, nil
}

// WalletAccounts returns the accounts the sync scans: type wallet with a
// linked address.
func (s *Store) WalletAccounts() ([]Account, error) {
	var accounts []Account
	err := s.db.Select(&accounts,
		`SELECT name, type, balance, wallet FROM accounts WHERE type='wallet' AND wallet IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// SetBalance sets an account's balance to an absolute display-currency value.
func (s *Store) SetBalance(name string, balance Money) error {
	res, err := s.db.Exec(`UPDATE accounts SET balance=? WHERE name=?`, balance.value, name)
	if err != nil {
		return fmt.Errorf("set balance of %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set balance: unknown account %q", name)
	}
	return nil
}

// LastBlock returns the scan cursor for (wallet, chain): the last processed
// block number. ok is false when the pair has never been scanned.
func (s *Store) LastBlock(wallet string, chainID int64) (block int64, ok bool, err error) {
	err = s.db.Get(&block, `SELECT last_block FROM scan_state WHERE wallet=? AND chain_id=?`, wallet, chainID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return block, true, nil
}

// AdvanceCursor upserts the scan cursor to max(existing, block). Callers must
// only advance after a fetch that returned at least one transfer, so an empty
// cycle never creates or rewrites a cursor.
func (s *Store) AdvanceCursor(wallet string, chainID, block int64) error {
	_, err := s.db.Exec(`
		INSERT INTO scan_state (wallet, chain_id, last_block) VALUES (?, ?, ?)
		ON CONFLICT(wallet, chain_id) DO UPDATE SET last_block=MAX(last_block, excluded.last_block)`,
		wallet, chainID, block)
	if err != nil {
		return fmt.Errorf("advance cursor %s/%d: %w", wallet, chainID, err)
	}
	return nil
}

// Apply records one classified transfer, exactly once. It returns
// applied=false when the (hash, direction) pair has been processed before.
//
// The seen-set check, the ledger insert, and the seen-set insert run in one
// transaction: a seen-set row without its ledger entry would permanently
// suppress a never-recorded transfer, so the pair must commit or fail
// together. The ledger insert is insert-if-absent on (hash, account): the
// same hash under a different account is a distinct entry, a retry under the
// same account is a no-op.
func (s *Store) Apply(e LedgerEntry, direction Direction, chainID int64) (applied bool, err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("apply %s: %w", e.Hash, err)
	}
	defer tx.Rollback()

	var one int
	err = tx.Get(&one, `SELECT 1 FROM seen_tx WHERE hash=? AND direction=?`, e.Hash, direction)
	if err == nil {
		return false, nil // already processed
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("apply %s: %w", e.Hash, err)
	}

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO ledger
			(date, type, symbol, amount_token, price_at_time, value_fiat, account, description, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date.String(), string(e.Type), e.Symbol, e.Amount.value, e.Price.value,
		e.Value.value, e.Account, e.Description, e.Hash)
	if err != nil {
		return false, fmt.Errorf("apply %s: %w", e.Hash, err)
	}

	_, err = tx.Exec(`
		INSERT INTO seen_tx (hash, direction, account, chain_id, date) VALUES (?, ?, ?, ?, ?)`,
		e.Hash, string(direction), e.Account, chainID, e.Date.String())
	if err != nil {
		return false, fmt.Errorf("apply %s: %w", e.Hash, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("apply %s: %w", e.Hash, err)
	}
	return true, nil
}

// ledgerRow is the SQL shape of a LedgerEntry.
type ledgerRow struct {
	Date        string          `db:"date"`
	Type        string          `db:"type"`
	Symbol      string          `db:"symbol"`
	Amount      decimal.Decimal `db:"amount_token"`
	Price       decimal.Decimal `db:"price_at_time"`
	Value       decimal.Decimal `db:"value_fiat"`
	Account     string          `db:"account"`
	Description string          `db:"description"`
	Hash        string          `db:"hash"`
}

func (s *Store) entry(r ledgerRow) (LedgerEntry, error) {
	on, err := date.Parse(r.Date)
	if err != nil {
		return LedgerEntry{}, err
	}
	return LedgerEntry{
		Date:        on,
		Type:        EntryType(r.Type),
		Symbol:      r.Symbol,
		Amount:      A(r.Amount),
		Price:       M(r.Price, s.cur),
		Value:       M(r.Value, s.cur),
		Account:     r.Account,
		Description: r.Description,
		Hash:        r.Hash,
	}, nil
}

// Entries returns ledger entries, most recent first. limit <= 0 returns all.
func (s *Store) Entries(limit int) ([]LedgerEntry, error) {
	q := `SELECT date, type, symbol, amount_token, price_at_time, value_fiat, account, description, hash
		FROM ledger ORDER BY date DESC, hash DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []ledgerRow
	if err := s.db.Select(&rows, q, args...); err != nil {
		return nil, err
	}
	entries := make([]LedgerEntry, 0, len(rows))
	for _, r := range rows {
		e, err := s.entry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SummaryRow aggregates the ledger by entry type.
type SummaryRow struct {
	Type  string          `db:"type"`
	Count int             `db:"cnt"`
	Total decimal.Decimal `db:"total"`
}

// Summary returns per-type entry counts and display-currency totals.
func (s *Store) Summary() ([]SummaryRow, error) {
	var rows []SummaryRow
	err := s.db.Select(&rows, `
		SELECT type, COUNT(*) AS cnt, COALESCE(SUM(CAST(value_fiat AS REAL)), 0) AS total
		FROM ledger GROUP BY type ORDER BY type`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
