package arbitrage

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, DefaultListLimit},
		{"explicit", "?page=3&limit=10", 3, 10},
		{"page below one clamps", "?page=0&limit=10", 1, 10},
		{"negative page clamps", "?page=-2", 1, DefaultListLimit},
		{"limit above max clamps", "?limit=500", 1, MaxListLimit},
		{"zero limit falls back", "?limit=0", 1, DefaultListLimit},
		{"garbage ignored", "?page=abc&limit=xyz", 1, DefaultListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/arbitrages"+tt.query, nil)
			params := ParseListParams(r)
			assert.Equal(t, tt.wantPage, params.Page)
			assert.Equal(t, tt.wantLimit, params.Limit)
		})
	}
}

func TestListParams_Offset(t *testing.T) {
	assert.Equal(t, 0, ListParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 10, ListParams{Page: 2, Limit: 10}.Offset())
	assert.Equal(t, 100, ListParams{Page: 3, Limit: 50}.Offset())
}

func TestCursorRoundTrip(t *testing.T) {
	original := cursor{
		CreatedAt:   time.Date(2026, 4, 1, 8, 15, 30, 123456789, time.UTC),
		ArbitrageID: "arb-2026-cafe0001",
	}

	decoded, err := decodeCursor(encodeCursor(original))
	require.NoError(t, err)

	assert.True(t, decoded.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, original.ArbitrageID, decoded.ArbitrageID)
}

func TestDecodeCursor_Empty(t *testing.T) {
	c, err := decodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.IsZero())
	assert.Empty(t, c.ArbitrageID)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	for _, token := range []string{"not base64!!", "bm9zZXBhcmF0b3I", "bm90YXRpbWV8aWQ"} {
		_, err := decodeCursor(token)
		assert.Error(t, err, "token %q should be rejected", token)
	}
}
