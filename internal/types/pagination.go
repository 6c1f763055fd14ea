package types

// PageInfo contains pagination metadata for list responses.
type PageInfo struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
	TotalItems *int   `json:"total_items,omitempty"`
}

// ListResponse is a generic paginated response wrapper.
type ListResponse[T any] struct {
	Data     []T      `json:"data"`
	PageInfo PageInfo `json:"pagination"`
}

// ResponseMeta contains non-blocking metadata returned with API responses.
type ResponseMeta struct {
	Warnings   []string  `json:"warnings,omitempty"`
	Pagination *PageInfo `json:"pagination,omitempty"`
}

// DefaultPageLimit and MaxPageLimit bound list endpoint page sizes.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// ClampLimit normalizes a caller-supplied page limit into [1, MaxPageLimit],
// substituting the default for zero or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}
