package platsbanken

import "strings"

// Cursor keys injected into every search payload.
const (
	KeyStartIndex = "startIndex"
	KeyMaxRecords = "maxRecords"
)

// DefaultPayload is the search body used when no override file is given.
// occupationField, when set, becomes the only filter.
func DefaultPayload(occupationField string) map[string]any {
	filters := []any{}
	if v := strings.TrimSpace(occupationField); v != "" {
		filters = append(filters, map[string]any{"type": "occupationField", "value": v})
	}
	return map[string]any{
		"filters":  filters,
		"fromDate": nil,
		"toDate":   nil,
		"order":    "relevance",
		"source":   "pb",
	}
}

// WithCursor returns a shallow copy of payload with the pagination keys set.
// Every other key is passed through untouched.
func WithCursor(payload map[string]any, startIndex, maxRecords int) map[string]any {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out[KeyStartIndex] = startIndex
	out[KeyMaxRecords] = maxRecords
	return out
}
