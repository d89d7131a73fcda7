package vaultplan

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDexscreenerBaseURL is the Dexscreener pair-search endpoint.
const DefaultDexscreenerBaseURL = "https://api.dexscreener.com/latest/dex/search"

// DexscreenerClient resolves snapshot prices for token symbols from the
// Dexscreener search API. Pairs are quoted in USD; rates are converted into
// the display currency with a fixed USD rate.
type DexscreenerClient struct {
	baseURL  string
	currency string
	usdRate  decimal.Decimal // display-currency units per USD
	client   *http.Client
}

// NewDexscreenerClient returns a price client. baseURL defaults to the
// Dexscreener API when empty. Responses are disk-cached with a daily expiry,
// so repeated syncs within a day reuse the same snapshot.
func NewDexscreenerClient(baseURL, currency string, usdRate float64, timeout time.Duration) *DexscreenerClient {
	if baseURL == "" {
		baseURL = DefaultDexscreenerBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexscreenerClient{
		baseURL:  baseURL,
		currency: currency,
		usdRate:  decimal.NewFromFloat(usdRate),
		client:   newDailyCachingClient(timeout),
	}
}

// dexPair matches one trading pair of the search response.
type dexPair struct {
	PriceUsd   string `json:"priceUsd"`
	QuoteToken struct {
		Symbol string `json:"symbol"`
	} `json:"quoteToken"`
}

type dexSearchResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// Snapshot resolves a display-currency rate for each symbol. A symbol that
// cannot be priced gets rate 0: downstream values become zero instead of the
// cycle aborting.
func (c *DexscreenerClient) Snapshot(symbols []string) PriceSnapshot {
	prices := make(PriceSnapshot, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = c.rate(symbol)
	}
	return prices
}

// rate resolves one symbol, preferring a USD-quoted pair and falling back to
// the first pair returned.
func (c *DexscreenerClient) rate(symbol string) Money {
	zero := M(0, c.currency)

	var res dexSearchResponse
	addr := c.baseURL + "?q=" + url.QueryEscape(symbol)
	if err := jwget(c.client, addr, &res); err != nil {
		log.Printf("price %s: %v", symbol, err)
		return zero
	}
	if len(res.Pairs) == 0 {
		return zero
	}

	pair := res.Pairs[0]
	for _, p := range res.Pairs {
		if strings.EqualFold(p.QuoteToken.Symbol, "USD") {
			pair = p
			break
		}
	}

	usd, err := decimal.NewFromString(pair.PriceUsd)
	if err != nil {
		log.Printf("price %s: bad priceUsd %q", symbol, pair.PriceUsd)
		return zero
	}
	return M(usd.Mul(c.usdRate), c.currency).Round(6)
}
