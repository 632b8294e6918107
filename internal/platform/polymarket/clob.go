package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// ClobClient is the REST client for the public, read-only slice of the
// Polymarket CLOB (Central Limit Order Book) API. Only book queries are
// implemented; nothing here places orders.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    domain.RateLimiter
	ratePerSec int
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// limiter may be nil, in which case requests are not throttled.
func NewClobClient(baseURL string, timeout time.Duration, limiter domain.RateLimiter, ratePerSec int) *ClobClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 40
	}
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		ratePerSec: ratePerSec,
	}
}

// GetOrderBook fetches the order book for a single CLOB token.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doRequest(ctx, http.MethodGet, "/book?"+params.Encode(), nil)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var apiBook APIBook
	if err := json.Unmarshal(body, &apiBook); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}
	if apiBook.AssetID == "" {
		apiBook.AssetID = tokenID
	}
	return apiBook.ToSnapshot(), nil
}

// GetOrderBooks fetches books for multiple tokens in one round trip via the
// batch /books endpoint. Tokens the API does not know are absent from the
// result, not an error.
func (c *ClobClient) GetOrderBooks(ctx context.Context, tokenIDs []string) ([]domain.OrderBookSnapshot, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}

	type bookParam struct {
		TokenID string `json:"token_id"`
	}
	payload := make([]bookParam, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		payload = append(payload, bookParam{TokenID: id})
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/books", payload)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: get books: %w", err)
	}

	var apiBooks []APIBook
	if err := json.Unmarshal(body, &apiBooks); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode books: %w", err)
	}

	snaps := make([]domain.OrderBookSnapshot, 0, len(apiBooks))
	for i := range apiBooks {
		snaps = append(snaps, apiBooks[i].ToSnapshot())
	}
	return snaps, nil
}

// doRequest sends an unauthenticated request to the CLOB API and returns the
// raw response body.
func (c *ClobClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "clob", c.ratePerSec, time.Second); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var bodyReader io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch {
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstream, statusCode, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
