package vaultplan

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vaultplan/vaultplan/date"
)

const etherscan_api_key = "ETHERSCAN_API_KEY"

var etherscanApiFlag = flag.String("etherscan-api-key", "", "Etherscan API key to use for fetching on-chain transfers.\n If missing it will read the environment variable \""+etherscan_api_key+"\". You can get one at https://etherscan.io/apis")

// EtherscanApiKey returns the configured Etherscan API key, empty when unset.
func EtherscanApiKey() string {
	// If the flag is not set, we try to read it from the environment variable.
	if *etherscanApiFlag == "" {
		*etherscanApiFlag = os.Getenv(etherscan_api_key)
	}
	return *etherscanApiFlag
}

// DefaultEtherscanBaseURL is the Etherscan v2 multi-chain API endpoint.
const DefaultEtherscanBaseURL = "https://api.etherscan.io/v2/api"

// endBlock is the effectively unbounded upper bound of every scan.
const endBlock = "99999999"

// EtherscanClient fetches native and token transfer lists for one wallet on
// one chain. It is a stateless I/O adapter: any network, parsing, or upstream
// error yields an empty result and a non-nil error for the caller to log; the
// sync cycle itself never aborts on a fetch failure.
type EtherscanClient struct {
	apiKey  string
	baseURL string
	client  *http.Client

	warnKey sync.Once
}

// NewEtherscanClient returns a client against the given base URL (the
// Etherscan v2 endpoint when empty).
func NewEtherscanClient(apiKey, baseURL string, timeout time.Duration) *EtherscanClient {
	if baseURL == "" {
		baseURL = DefaultEtherscanBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &EtherscanClient{apiKey: apiKey, baseURL: baseURL, client: newClient(timeout)}
}

// normalTx matches one item of the account.txlist result.
type normalTx struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	IsError     string `json:"isError"`
}

// tokenTx matches one item of the account.tokentx result.
type tokenTx struct {
	BlockNumber  string `json:"blockNumber"`
	TimeStamp    string `json:"timeStamp"`
	Hash         string `json:"hash"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenSymbol  string `json:"tokenSymbol"`
	TokenDecimal string `json:"tokenDecimal"`
}

// txListResponse is the etherscan envelope. On upstream errors Result is a
// plain string instead of a list; decoding then fails and the fetch is
// treated as empty, which is the contract for any recoverable failure.
type txListResponse[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []T    `json:"result"`
}

// query builds the common parameter set of the v2 API.
func (c *EtherscanClient) query(action, address string, chainID, fromBlock int64) string {
	v := url.Values{}
	v.Set("chainid", strconv.FormatInt(chainID, 10))
	v.Set("module", "account")
	v.Set("action", action)
	v.Set("address", address)
	v.Set("startblock", strconv.FormatInt(fromBlock, 10))
	v.Set("endblock", endBlock)
	v.Set("sort", "asc")
	v.Set("apikey", c.apiKey)
	return c.baseURL + "?" + v.Encode()
}

// missingKey reports (once) an unset API key. A missing credential is a
// configuration error, not a fetch error: the call scans nothing.
func (c *EtherscanClient) missingKey() bool {
	if c.apiKey != "" {
		return false
	}
	c.warnKey.Do(func() {
		log.Printf("missing etherscan api key, set -etherscan-api-key or %s; skipping chain scans", etherscan_api_key)
	})
	return true
}

// NativeTransfers fetches the wallet's native-currency transfers on one chain
// starting at fromBlock (inclusive; 0 scans from genesis). Failed transactions
// and contract creations (empty destination) are excluded. When at least one
// transfer is returned, the wallet's current native balance is attached to the
// most recent one as a final-balance hint, best-effort.
func (c *EtherscanClient) NativeTransfers(address string, chainID, fromBlock int64) ([]RawTransfer, error) {
	if c.missingKey() {
		return nil, nil
	}
	var res txListResponse[normalTx]
	if err := jwget(c.client, c.query("txlist", address, chainID, fromBlock), &res); err != nil {
		return nil, fmt.Errorf("txlist chain %d: %w", chainID, err)
	}

	var parsed []RawTransfer
	for _, tx := range res.Result {
		// skip failed or contract creation txs
		if tx.IsError != "0" || tx.To == "" {
			continue
		}
		t, err := rawTransfer(tx.Hash, tx.TimeStamp, tx.BlockNumber, tx.To, tx.Value, NativeSymbol, 18, address, chainID)
		if err != nil {
			return nil, fmt.Errorf("txlist chain %d: %w", chainID, err)
		}
		t.Native = true
		parsed = append(parsed, t)
	}

	if len(parsed) > 0 {
		// sort=asc, so the last transfer is the most recent one.
		if bal, err := c.balance(address, chainID); err != nil {
			log.Printf("balance %s chain %d: %v", address, chainID, err)
		} else {
			parsed[len(parsed)-1].FinalBalance = &bal
		}
	}
	return parsed, nil
}

// TokenTransfers fetches the wallet's token transfers on one chain starting
// at fromBlock (inclusive; 0 scans from genesis). Transfers whose upper-cased
// symbol is not in the tracked list are excluded.
func (c *EtherscanClient) TokenTransfers(address string, tokens []string, chainID, fromBlock int64) ([]RawTransfer, error) {
	if c.missingKey() {
		return nil, nil
	}
	var res txListResponse[tokenTx]
	if err := jwget(c.client, c.query("tokentx", address, chainID, fromBlock), &res); err != nil {
		return nil, fmt.Errorf("tokentx chain %d: %w", chainID, err)
	}

	var parsed []RawTransfer
	for _, tx := range res.Result {
		symbol := strings.ToUpper(tx.TokenSymbol)
		if !containsSymbol(tokens, symbol) {
			continue
		}
		decimals, err := strconv.ParseInt(tx.TokenDecimal, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("tokentx chain %d: bad decimals %q: %w", chainID, tx.TokenDecimal, err)
		}
		t, err := rawTransfer(tx.Hash, tx.TimeStamp, tx.BlockNumber, tx.To, tx.Value, symbol, int32(decimals), address, chainID)
		if err != nil {
			return nil, fmt.Errorf("tokentx chain %d: %w", chainID, err)
		}
		parsed = append(parsed, t)
	}
	return parsed, nil
}

// balance fetches the wallet's current native balance in major units.
func (c *EtherscanClient) balance(address string, chainID int64) (Amount, error) {
	v := url.Values{}
	v.Set("chainid", strconv.FormatInt(chainID, 10))
	v.Set("module", "account")
	v.Set("action", "balance")
	v.Set("address", address)
	v.Set("tag", "latest")
	v.Set("apikey", c.apiKey)

	var res struct {
		Status string `json:"status"`
		Result string `json:"result"`
	}
	if err := jwget(c.client, c.baseURL+"?"+v.Encode(), &res); err != nil {
		return Amount{}, err
	}
	return AmountFromRaw(res.Result, 18)
}

// rawTransfer assembles one RawTransfer from etherscan string fields.
func rawTransfer(hash, timeStamp, blockNumber, to, value, symbol string, decimals int32, wallet string, chainID int64) (RawTransfer, error) {
	ts, err := strconv.ParseInt(timeStamp, 10, 64)
	if err != nil {
		return RawTransfer{}, fmt.Errorf("bad timestamp %q: %w", timeStamp, err)
	}
	block, err := strconv.ParseInt(blockNumber, 10, 64)
	if err != nil {
		return RawTransfer{}, fmt.Errorf("bad block %q: %w", blockNumber, err)
	}
	amount, err := AmountFromRaw(value, decimals)
	if err != nil {
		return RawTransfer{}, fmt.Errorf("bad value %q: %w", value, err)
	}
	direction := Out
	if strings.EqualFold(to, wallet) {
		direction = In
	}
	return RawTransfer{
		Hash:      hash,
		Date:      date.FromUnix(ts),
		Symbol:    symbol,
		Amount:    amount,
		Direction: direction,
		Block:     block,
		ChainID:   chainID,
	}, nil
}

func containsSymbol(tokens []string, symbol string) bool {
	for _, t := range tokens {
		if strings.EqualFold(t, symbol) {
			return true
		}
	}
	return false
}
