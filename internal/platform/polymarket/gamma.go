package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    domain.RateLimiter
	ratePerSec int
	now        func() time.Time
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// limiter may be nil, in which case requests are not throttled.
func NewGammaClient(baseURL string, timeout time.Duration, limiter domain.RateLimiter, ratePerSec int) *GammaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	return &GammaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		ratePerSec: ratePerSec,
		now:        time.Now,
	}
}

// GetMarkets returns one page of active, order-accepting markets normalized
// into snapshots.
func (g *GammaClient) GetMarkets(ctx context.Context, limit, offset int) ([]domain.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	now := g.now()
	snaps := make([]domain.MarketSnapshot, 0, len(apiMarkets))
	for i := range apiMarkets {
		snap := apiMarkets[i].ToSnapshot(now)
		if snap.ID == "" {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// GetAllMarkets pages through /markets until an empty or short page, up to
// maxMarkets entries. Pagination stops early when the context is cancelled.
func (g *GammaClient) GetAllMarkets(ctx context.Context, pageSize, maxMarkets int) ([]domain.MarketSnapshot, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []domain.MarketSnapshot
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return all, fmt.Errorf("polymarket/gamma: %w: %w", domain.ErrContextDone, err)
		}
		page, err := g.GetMarkets(ctx, pageSize, offset)
		if err != nil {
			// A partial result is still useful to the caller.
			return all, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		if maxMarkets > 0 && len(all) >= maxMarkets {
			return all[:maxMarkets], nil
		}
	}
}

// GetMarket returns a single market snapshot by its Gamma ID or condition ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	body, err := g.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}
	return apiMarket.ToSnapshot(g.now()), nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, "gamma", g.ratePerSec, time.Second); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}
