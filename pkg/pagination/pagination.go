package pagination

import (
	"net/url"
	"strconv"
)

// MaxLimit caps how many rows any listing can request.
const MaxLimit = 100

// Params holds page based pagination inputs from controllers or services.
// Pages start at 1.
type Params struct {
	Page  int
	Limit int
}

// Normalize applies defaultLimit when no limit is set and clamps the rest.
func (p Params) Normalize(defaultLimit int) Params {
	return Params{Page: NormalizePage(p.Page), Limit: NormalizeLimit(p.Limit, defaultLimit)}
}

// NormalizeLimit enforces the default and maximum limits.
func NormalizeLimit(limit, defaultLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Apply writes page and limit into query.
func (p Params) Apply(query url.Values) {
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("limit", strconv.Itoa(p.Limit))
}

// HasNext guesses whether another page exists. The backend does not report
// totals, so a full page is taken to mean there may be more.
func (p Params) HasNext(rows int) bool {
	return p.Limit > 0 && rows >= p.Limit
}

func (p Params) HasPrev() bool {
	return p.Page > 1
}
