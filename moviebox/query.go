package moviebox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind names a provider
type Kind string

const (
	KindSearch          Kind = "search"
	KindTrending        Kind = "trending"
	KindHomepage        Kind = "homepage"
	KindPopularSearch   Kind = "popular_search"
	KindMovieDetails    Kind = "movie_details"
	KindTVSeriesDetails Kind = "tv_series_details"
)

// Page size bounds accepted by the upstream
const (
	MinPerPage = 1
	MaxPerPage = 100
)

// Query is a provider configuration. The set of implementations is closed;
// Session.Fetch is the only way to run one.
type Query interface {
	Kind() Kind
	validate() error
	fetch(ctx context.Context, s *Session) (*Content, error)
}

func validatePaging(page, perPage int) error {
	if page < 1 {
		return invalidQuery("page must be >= 1, got %d", page)
	}
	if perPage < MinPerPage || perPage > MaxPerPage {
		return invalidQuery("per_page must be between %d and %d, got %d", MinPerPage, MaxPerPage, perPage)
	}
	return nil
}

// SearchQuery searches the catalog by keyword
type SearchQuery struct {
	Keyword     string
	SubjectType SubjectType
	Page        int
	PerPage     int
}

func (SearchQuery) Kind() Kind { return KindSearch }

func (q SearchQuery) validate() error {
	if strings.TrimSpace(q.Keyword) == "" {
		return invalidQuery("keyword is required")
	}
	return validatePaging(q.Page, q.PerPage)
}

func (q SearchQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	payload := map[string]any{
		"keyword":     q.Keyword,
		"page":        q.Page,
		"perPage":     q.PerPage,
		"subjectType": int(q.SubjectType),
	}

	var data listData
	if err := s.postJSON(ctx, "/web/subject/search", payload, &data); err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", q.Keyword, err)
	}
	return &Content{Items: data.items(), Pager: data.Pager}, nil
}

// TrendingQuery lists trending movies and series
type TrendingQuery struct {
	Page    int
	PerPage int
}

func (TrendingQuery) Kind() Kind { return KindTrending }

func (q TrendingQuery) validate() error {
	return validatePaging(q.Page, q.PerPage)
}

func (q TrendingQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	// Trending pages are zero-based upstream
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page-1))
	params.Set("perPage", strconv.Itoa(q.PerPage))

	var data listData
	if err := s.getJSON(ctx, "/web/subject/trending", params, &data); err != nil {
		return nil, fmt.Errorf("failed to get trending: %w", err)
	}
	return &Content{Items: data.items(), Pager: data.Pager}, nil
}

// HomepageQuery fetches the landing page sections
type HomepageQuery struct{}

func (HomepageQuery) Kind() Kind { return KindHomepage }

func (HomepageQuery) validate() error { return nil }

func (HomepageQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	params := url.Values{}
	params.Set("host", hostOf(s.pageURL))

	var data homeData
	if err := s.getJSON(ctx, "/web/home", params, &data); err != nil {
		return nil, fmt.Errorf("failed to get homepage: %w", err)
	}
	return &Content{Contents: data.Contents, OperatingList: data.OperatingList}, nil
}

// PopularSearchQuery fetches the terms other users search for
type PopularSearchQuery struct{}

func (PopularSearchQuery) Kind() Kind { return KindPopularSearch }

func (PopularSearchQuery) validate() error { return nil }

func (PopularSearchQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	var data popularData
	if err := s.getJSON(ctx, "/web/subject/everyone-search", nil, &data); err != nil {
		return nil, fmt.Errorf("failed to get popular searches: %w", err)
	}
	return &Content{Searches: data.searches()}, nil
}

// MovieDetailsQuery fetches the detail record of a movie found by a search
type MovieDetailsQuery struct {
	Item Item
}

func (MovieDetailsQuery) Kind() Kind { return KindMovieDetails }

func (q MovieDetailsQuery) validate() error {
	_, err := q.Item.Ref()
	return err
}

func (q MovieDetailsQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	return fetchDetails(ctx, s, q.Item)
}

// TVSeriesDetailsQuery fetches the detail record of a series found by a search
type TVSeriesDetailsQuery struct {
	Item Item
}

func (TVSeriesDetailsQuery) Kind() Kind { return KindTVSeriesDetails }

func (q TVSeriesDetailsQuery) validate() error {
	_, err := q.Item.Ref()
	return err
}

func (q TVSeriesDetailsQuery) fetch(ctx context.Context, s *Session) (*Content, error) {
	return fetchDetails(ctx, s, q.Item)
}

func fetchDetails(ctx context.Context, s *Session, item Item) (*Content, error) {
	ref, err := item.Ref()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("id", ref.SubjectID)
	pageURL := s.pageURL + "/movies/" + url.PathEscape(ref.DetailPath) + "?" + params.Encode()

	html, err := s.getPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get details for %s: %w", ref.SubjectID, err)
	}

	detail, err := ExtractDetail(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract details for %s: %w", ref.SubjectID, err)
	}
	return &Content{Detail: detail}, nil
}

func hostOf(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	return u.Host
}
