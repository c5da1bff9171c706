package pricing

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"time"

	"paymasterhub/internal/adapters/outbound/redisstore"
	"paymasterhub/internal/application/dto"
	portsout "paymasterhub/internal/application/ports/out"
	valueobjects "paymasterhub/internal/domain/value_objects"

	"github.com/puzpuzpuz/xsync"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	SourceLive        = "live"
	SourceMemory      = "memory_cache"
	SourceShared      = "shared_cache"
	SourceStaleMemory = "stale_memory_cache"
	SourceStaleShared = "stale_shared_cache"
	SourceNone        = "none"

	defaultRefreshInterval = 5 * time.Minute
	defaultHTTPTimeout     = 10 * time.Second
	sharedKeyPrefix        = "paymasterhub:price:"
	sharedCacheTTL         = 24 * time.Hour
)

type Config struct {
	BaseURL         string
	RefreshInterval time.Duration
	HTTPClient      *http.Client
}

type cachedPrice struct {
	PriceUSD  decimal.Decimal `json:"price_usd"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Oracle serves USD prices from CoinGecko's simple price endpoint. Each price
// id is fetched at most once per interval, including failed fetches; failures
// fall back to the last cached value in memory, then in the shared store, then
// to zero.
type Oracle struct {
	baseURL         string
	refreshInterval time.Duration
	httpClient      *http.Client
	shared          redisstore.Store
	memory          *xsync.MapOf[string, cachedPrice]
	failedAt        *xsync.MapOf[string, time.Time]
	fetches         singleflight.Group
	now             func() time.Time
	logger          *log.Logger
}

var _ portsout.PriceOracle = (*Oracle)(nil)

func NewOracle(cfg Config, shared redisstore.Store, now func() time.Time, logger *log.Logger) *Oracle {
	refreshInterval := cfg.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if now == nil {
		now = time.Now
	}

	return &Oracle{
		baseURL:         cfg.BaseURL,
		refreshInterval: refreshInterval,
		httpClient:      httpClient,
		shared:          shared,
		memory:          xsync.NewMapOf[cachedPrice](),
		failedAt:        xsync.NewMapOf[time.Time](),
		now:             now,
		logger:          logger,
	}
}

func (o *Oracle) PriceUSD(ctx context.Context, chain valueobjects.ChainSpec) dto.PriceQuote {
	priceID := chain.PriceID
	quote := dto.PriceQuote{Symbol: chain.Symbol, PriceUSD: decimal.Zero, Source: SourceNone}
	if priceID == "" {
		return quote
	}

	now := o.now()
	memoryPrice, inMemory := o.memory.Load(priceID)
	if inMemory && now.Sub(memoryPrice.FetchedAt) < o.refreshInterval {
		return withPrice(quote, memoryPrice, SourceMemory)
	}

	sharedPrice, inShared := o.loadShared(ctx, priceID)
	if inShared && now.Sub(sharedPrice.FetchedAt) < o.refreshInterval {
		o.memory.Store(priceID, sharedPrice)
		return withPrice(quote, sharedPrice, SourceShared)
	}

	if lastFailure, failed := o.failedAt.Load(priceID); failed && now.Sub(lastFailure) < o.refreshInterval {
		return staleQuote(quote, memoryPrice, inMemory, sharedPrice, inShared)
	}

	fetched, err, _ := o.fetches.Do(priceID, func() (any, error) {
		return o.fetch(ctx, priceID)
	})
	if err == nil {
		price := fetched.(cachedPrice)
		o.failedAt.Delete(priceID)
		o.memory.Store(priceID, price)
		o.storeShared(ctx, priceID, price)
		return withPrice(quote, price, SourceLive)
	}

	o.failedAt.Store(priceID, now)
	o.logf("price fetch failed price_id=%s error=%s", priceID, err.Error())
	if inShared && (!inMemory || sharedPrice.FetchedAt.After(memoryPrice.FetchedAt)) {
		o.memory.Store(priceID, sharedPrice)
	}
	return staleQuote(quote, memoryPrice, inMemory, sharedPrice, inShared)
}

func staleQuote(
	quote dto.PriceQuote,
	memoryPrice cachedPrice,
	inMemory bool,
	sharedPrice cachedPrice,
	inShared bool,
) dto.PriceQuote {
	switch {
	case inMemory && (!inShared || !sharedPrice.FetchedAt.After(memoryPrice.FetchedAt)):
		return withPrice(quote, memoryPrice, SourceStaleMemory)
	case inShared:
		return withPrice(quote, sharedPrice, SourceStaleShared)
	default:
		return quote
	}
}

func (o *Oracle) fetch(ctx context.Context, priceID string) (cachedPrice, error) {
	endpoint, err := url.Parse(o.baseURL + "/simple/price")
	if err != nil {
		return cachedPrice{}, err
	}
	query := endpoint.Query()
	query.Set("ids", priceID)
	query.Set("vs_currencies", "usd")
	query.Set("precision", "full")
	endpoint.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return cachedPrice{}, err
	}
	request.Header.Set("Accept", "application/json")

	response, err := o.httpClient.Do(request)
	if err != nil {
		return cachedPrice{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return cachedPrice{}, &statusError{statusCode: response.StatusCode}
	}

	payload := map[string]map[string]json.Number{}
	decoder := json.NewDecoder(response.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return cachedPrice{}, err
	}

	raw, ok := payload[priceID]["usd"]
	if !ok {
		return cachedPrice{}, errPriceMissing
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return cachedPrice{}, err
	}
	if price.IsNegative() {
		return cachedPrice{}, errPriceMissing
	}

	return cachedPrice{PriceUSD: price, FetchedAt: o.now()}, nil
}

func (o *Oracle) loadShared(ctx context.Context, priceID string) (cachedPrice, bool) {
	if o.shared == nil {
		return cachedPrice{}, false
	}
	raw, found, err := o.shared.Get(ctx, sharedKeyPrefix+priceID)
	if err != nil {
		o.logf("shared price cache read failed price_id=%s error=%s", priceID, err.Error())
		return cachedPrice{}, false
	}
	if !found {
		return cachedPrice{}, false
	}

	var price cachedPrice
	if err := json.Unmarshal([]byte(raw), &price); err != nil {
		o.logf("shared price cache entry invalid price_id=%s error=%s", priceID, err.Error())
		return cachedPrice{}, false
	}
	return price, true
}

func (o *Oracle) storeShared(ctx context.Context, priceID string, price cachedPrice) {
	if o.shared == nil {
		return
	}
	encoded, err := json.Marshal(price)
	if err != nil {
		return
	}
	if err := o.shared.Set(ctx, sharedKeyPrefix+priceID, string(encoded), sharedCacheTTL); err != nil {
		o.logf("shared price cache write failed price_id=%s error=%s", priceID, err.Error())
	}
}

func (o *Oracle) logf(format string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Printf(format, args...)
}

func withPrice(quote dto.PriceQuote, price cachedPrice, source string) dto.PriceQuote {
	quote.PriceUSD = price.PriceUSD
	quote.FetchedAt = price.FetchedAt
	quote.Source = source
	return quote
}
