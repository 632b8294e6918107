package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestClobClient_GetOrderBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "tok-1", r.URL.Query().Get("token_id"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"market": "0xabc",
			"bids": [{"price": "0.48", "size": "100"}],
			"asks": [{"price": "0.52", "size": "80"}]
		}`)
	}))
	defer server.Close()

	client := NewClobClient(server.URL, 5*time.Second, nil, 0)

	book, err := client.GetOrderBook(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", book.MarketID)
	// The API omitted asset_id; the requested token backfills it.
	assert.Equal(t, "tok-1", book.AssetID)
	assert.Equal(t, 0.48, book.BestBid())
	assert.Equal(t, 0.52, book.BestAsk())
}

func TestClobClient_GetOrderBooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)

		var payload []struct {
			TokenID string `json:"token_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload, 2)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"asset_id": "tok-1", "bids": [{"price": "0.5", "size": "1"}], "asks": []},
			{"asset_id": "tok-2", "bids": [], "asks": [{"price": "0.6", "size": "2"}]}
		]`)
	}))
	defer server.Close()

	client := NewClobClient(server.URL, 5*time.Second, nil, 0)

	books, err := client.GetOrderBooks(context.Background(), []string{"tok-1", "tok-2"})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "tok-1", books[0].AssetID)
	assert.Equal(t, "tok-2", books[1].AssetID)
}

func TestClobClient_EmptyBatchSkipsRequest(t *testing.T) {
	client := NewClobClient("http://unreachable.invalid", time.Second, nil, 0)
	books, err := client.GetOrderBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, books)
}

func TestCheckHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrUpstream},
		{http.StatusBadGateway, domain.ErrUpstream},
	}
	for _, tc := range cases {
		err := checkHTTPStatus(tc.status, []byte("body"))
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}

	assert.NoError(t, checkHTTPStatus(http.StatusOK, nil))

	// 4xx outside the mapped set is a plain error.
	err := checkHTTPStatus(http.StatusBadRequest, []byte("bad"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
