package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestGammaClient_GetMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "volume24hr", r.URL.Query().Get("order"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"conditionId": "0xaaa", "question": "A?", "acceptingOrders": true},
			{"conditionId": "", "id": "", "question": "no identity"},
			{"conditionId": "0xbbb", "question": "B?"}
		]`)
	}))
	defer server.Close()

	client := NewGammaClient(server.URL, 5*time.Second, nil, 0)

	snaps, err := client.GetMarkets(context.Background(), 50, 0)
	require.NoError(t, err)

	// The identity-less market is dropped.
	require.Len(t, snaps, 2)
	assert.Equal(t, "0xaaa", snaps[0].ID)
	assert.Equal(t, "0xbbb", snaps[1].ID)
}

func TestGammaClient_GetAllMarkets(t *testing.T) {
	const pageSize = 2
	pages := [][]string{{"0x1", "0x2"}, {"0x3"}}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := offset / pageSize
		var markets []APIMarket
		if page < len(pages) {
			for _, id := range pages[page] {
				markets = append(markets, APIMarket{ConditionID: id})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
	defer server.Close()

	client := NewGammaClient(server.URL, 5*time.Second, nil, 0)

	snaps, err := client.GetAllMarkets(context.Background(), pageSize, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "0x3", snaps[2].ID)
}

func TestGammaClient_UpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewGammaClient(server.URL, 5*time.Second, nil, 0)

	_, err := client.GetMarkets(context.Background(), 10, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
