package s3blob

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictumhq/predictum/internal/domain"
)

func TestMarshalJSONL(t *testing.T) {
	opps := []domain.Opportunity{
		{ID: "1", MarketID: "mkt-1", Type: domain.OpportunitySpread},
		{ID: "2", MarketID: "mkt-2", Type: domain.OpportunityMomentum},
	}

	data, err := marshalJSONL(opps)
	require.NoError(t, err)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	var lines int
	for scanner.Scan() {
		var opp domain.Opportunity
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &opp))
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestArchivePath(t *testing.T) {
	before := time.Date(2026, 2, 15, 8, 30, 0, 0, time.UTC)
	path := archivePath(before)

	assert.True(t, strings.HasPrefix(path, "archive/opportunities/2026-02/"), path)
	assert.True(t, strings.HasSuffix(path, ".jsonl"), path)
}
