package arbitrage

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultListLimit applies when the limit parameter is absent.
	DefaultListLimit = 20
	// MaxListLimit is the upper bound for a listing page.
	MaxListLimit = 50
)

// ListParams holds offset-pagination parameters parsed from a request.
// Out-of-range values are clamped silently rather than erroring.
type ListParams struct {
	Page  int
	Limit int
}

// ParseListParams extracts page and limit from the query string.
func ParseListParams(r *http.Request) ListParams {
	q := r.URL.Query()

	page := 1
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			page = n
		}
	}

	limit := DefaultListLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	return ListParams{Page: page, Limit: limit}
}

// Offset returns the row offset of the page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// cursor is the decoded form of an opaque listing cursor: the sort key of
// the last item seen, so pages stay stable under concurrent inserts.
type cursor struct {
	CreatedAt   time.Time
	ArbitrageID string
}

// encodeCursor renders the sort key as an opaque token.
func encodeCursor(c cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ArbitrageID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor parses an opaque token back into a sort key. An empty token
// means "start from the newest run".
func decodeCursor(token string) (cursor, error) {
	if token == "" {
		return cursor{}, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return cursor{}, fmt.Errorf("malformed cursor: missing separator")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return cursor{}, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	return cursor{CreatedAt: createdAt, ArbitrageID: parts[1]}, nil
}
