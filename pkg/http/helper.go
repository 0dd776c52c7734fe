package http

import (
	"net/http"
	"strconv"
	"time"

	"gotour/pkg/config"
	apperrors "gotour/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

const dateLayout = "2006-01-02"

// ExtractDateRange reads the from and to query parameters as RFC 3339
// timestamps or plain dates. A plain to date covers that whole day.
func ExtractDateRange(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()

	from, _, err := parseDate(query.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid from parameter: " + query.Get("from"))
	}

	to, dateOnly, err := parseDate(query.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid to parameter: " + query.Get("to"))
	}
	if dateOnly {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	return from, to, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// HasPagination reports whether the request asked for a specific page.
func HasPagination(r *http.Request) bool {
	query := r.URL.Query()
	return query.Has("limit") || query.Has("offset")
}
