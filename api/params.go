package api

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/s0up4200/moviebox-api/moviebox"
)

// Paging defaults applied when the client omits them
const (
	DefaultPage    = 1
	DefaultPerPage = 24
)

// paging is the validated page/per_page pair of a list endpoint
type paging struct {
	Page    int
	PerPage int
}

// requiredString returns a non-empty query parameter
func requiredString(q url.Values, name string) (string, error) {
	if !q.Has(name) {
		return "", &ValidationError{Param: name, Reason: "field required"}
	}
	v := q.Get(name)
	if strings.TrimSpace(v) == "" {
		return "", &ValidationError{Param: name, Reason: "must not be empty"}
	}
	return v, nil
}

// optionalString returns the parameter or def when it is absent
func optionalString(q url.Values, name, def string) string {
	if !q.Has(name) {
		return def
	}
	return q.Get(name)
}

// intParam parses an integer parameter and checks it against [lo, hi]
func intParam(q url.Values, name string, def, lo, hi int) (int, error) {
	if !q.Has(name) {
		return def, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(q.Get(name)))
	if err != nil {
		return 0, &ValidationError{Param: name, Reason: "must be an integer"}
	}
	if n < lo {
		return 0, &ValidationError{Param: name, Reason: "must be greater than or equal to " + strconv.Itoa(lo)}
	}
	if n > hi {
		return 0, &ValidationError{Param: name, Reason: "must be less than or equal to " + strconv.Itoa(hi)}
	}
	return n, nil
}

// pagingParams reads page and per_page with their defaults and bounds
func pagingParams(q url.Values) (paging, error) {
	page, err := intParam(q, "page", DefaultPage, 1, math.MaxInt32)
	if err != nil {
		return paging{}, err
	}
	perPage, err := intParam(q, "per_page", DefaultPerPage, moviebox.MinPerPage, moviebox.MaxPerPage)
	if err != nil {
		return paging{}, err
	}
	return paging{Page: page, PerPage: perPage}, nil
}
