package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/moviebox-api/moviebox"
)

// openSession builds the per-request upstream session
func (s *Server) openSession() (Fetcher, error) {
	session, err := s.newSession()
	if err != nil {
		return nil, upstream(fmt.Errorf("failed to create session: %w", err))
	}
	if session == nil {
		return nil, upstream(fmt.Errorf("failed to create session: no session returned"))
	}
	return session, nil
}

// fetch runs one query and classifies any failure as upstream
func (s *Server) fetch(ctx context.Context, session Fetcher, q moviebox.Query) (*moviebox.Content, error) {
	content, err := session.Fetch(ctx, q)
	s.metrics.observeFetch(q.Kind(), err)
	if err != nil {
		return nil, upstream(err)
	}
	if content == nil {
		content = &moviebox.Content{Kind: q.Kind()}
	}
	return content, nil
}

// records keeps empty result lists encoded as [] rather than null
func records(items []moviebox.Item) []moviebox.Item {
	if items == nil {
		return []moviebox.Item{}
	}
	return items
}

func (s *Server) handleRoot(*http.Request) (Fields, error) {
	return Fields{
		{Key: "message", Value: "MovieBox API is running"},
		{Key: "docs", Value: "/docs"},
		{Key: "api_explorer", Value: "/explorer"},
	}, nil
}

func (s *Server) handleHealth(*http.Request) (Fields, error) {
	return Fields{
		{Key: "status", Value: "ok"},
		{Key: "version", Value: s.opts.Version},
	}, nil
}

func (s *Server) handleSearch(r *http.Request) (Fields, error) {
	q := r.URL.Query()

	query, err := requiredString(q, "query")
	if err != nil {
		return nil, err
	}
	contentType := optionalString(q, "type", "all")
	p, err := pagingParams(q)
	if err != nil {
		return nil, err
	}

	session, err := s.openSession()
	if err != nil {
		return nil, err
	}
	content, err := s.fetch(r.Context(), session, moviebox.SearchQuery{
		Keyword:     query,
		SubjectType: moviebox.ParseSubjectType(contentType),
		Page:        p.Page,
		PerPage:     p.PerPage,
	})
	if err != nil {
		return nil, err
	}

	return Fields{
		{Key: "query", Value: query},
		{Key: "type", Value: contentType},
		{Key: "page", Value: p.Page},
		{Key: "per_page", Value: p.PerPage},
		{Key: "total", Value: len(content.Items)},
		{Key: "has_more", Value: content.HasMore()},
		{Key: "results", Value: records(content.Items)},
	}, nil
}

func (s *Server) handleTrending(r *http.Request) (Fields, error) {
	p, err := pagingParams(r.URL.Query())
	if err != nil {
		return nil, err
	}

	session, err := s.openSession()
	if err != nil {
		return nil, err
	}
	content, err := s.fetch(r.Context(), session, moviebox.TrendingQuery{
		Page:    p.Page,
		PerPage: p.PerPage,
	})
	if err != nil {
		return nil, err
	}

	return Fields{
		{Key: "page", Value: p.Page},
		{Key: "per_page", Value: p.PerPage},
		{Key: "total", Value: len(content.Items)},
		{Key: "has_more", Value: content.HasMore()},
		{Key: "results", Value: records(content.Items)},
	}, nil
}

func (s *Server) handleHomepage(r *http.Request) (Fields, error) {
	session, err := s.openSession()
	if err != nil {
		return nil, err
	}
	content, err := s.fetch(r.Context(), session, moviebox.HomepageQuery{})
	if err != nil {
		return nil, err
	}

	return Fields{
		{Key: "contents", Value: records(content.Contents)},
		{Key: "categories", Value: records(content.OperatingList)},
	}, nil
}

func (s *Server) handlePopularSearches(r *http.Request) (Fields, error) {
	session, err := s.openSession()
	if err != nil {
		return nil, err
	}
	content, err := s.fetch(r.Context(), session, moviebox.PopularSearchQuery{})
	if err != nil {
		return nil, err
	}

	return Fields{
		{Key: "popular_searches", Value: records(content.Searches)},
	}, nil
}

// detailRoute describes one lookup-by-id endpoint
type detailRoute struct {
	subjectType    moviebox.SubjectType
	notFound       string
	placeholderKey string
	query          func(moviebox.Item) moviebox.Query
}

var (
	movieDetails = detailRoute{
		subjectType:    moviebox.SubjectTypeMovies,
		notFound:       "Movie not found",
		placeholderKey: "downloadable_files",
		query:          func(it moviebox.Item) moviebox.Query { return moviebox.MovieDetailsQuery{Item: it} },
	}
	seriesDetails = detailRoute{
		subjectType:    moviebox.SubjectTypeTVSeries,
		notFound:       "TV series not found",
		placeholderKey: "seasons",
		query:          func(it moviebox.Item) moviebox.Query { return moviebox.TVSeriesDetailsQuery{Item: it} },
	}
)

// handleDetails resolves the subject with a single-result search, then loads
// the detail record of the first hit on the same session
func (s *Server) handleDetails(route detailRoute) handlerFunc {
	return func(r *http.Request) (Fields, error) {
		subjectID := chi.URLParam(r, "subject_id")
		if strings.TrimSpace(subjectID) == "" {
			return nil, &ValidationError{Param: "subject_id", Reason: "field required"}
		}

		session, err := s.openSession()
		if err != nil {
			return nil, err
		}

		found, err := s.fetch(r.Context(), session, moviebox.SearchQuery{
			Keyword:     subjectID,
			SubjectType: route.subjectType,
			Page:        1,
			PerPage:     1,
		})
		if err != nil {
			return nil, err
		}
		if len(found.Items) == 0 {
			return nil, &NotFoundError{Message: route.notFound}
		}

		content, err := s.fetch(r.Context(), session, route.query(found.Items[0]))
		if err != nil {
			return nil, err
		}

		var details any
		if len(content.Detail) > 0 {
			details = content.Detail
		}

		return Fields{
			{Key: "details", Value: details},
			{Key: route.placeholderKey, Value: nil},
		}, nil
	}
}

// endpoint is one entry of the /docs catalog
type endpoint struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Params      []string `json:"params"`
	Description string   `json:"description"`
}

func (s *Server) endpoints() []endpoint {
	list := []endpoint{
		{Method: http.MethodGet, Path: "/", Params: []string{}, Description: "Service banner"},
		{Method: http.MethodGet, Path: "/docs", Params: []string{}, Description: "This endpoint catalog"},
		{Method: http.MethodGet, Path: "/health", Params: []string{}, Description: "Liveness check, no upstream call"},
		{
			Method:      http.MethodGet,
			Path:        "/api/search",
			Params:      []string{"query (required)", "type=all|movie|series|tv", "page=1", "per_page=24 (1-100)"},
			Description: "Search movies and TV series",
		},
		{
			Method:      http.MethodGet,
			Path:        "/api/trending",
			Params:      []string{"page=1", "per_page=24 (1-100)"},
			Description: "Trending titles",
		},
		{Method: http.MethodGet, Path: "/api/homepage", Params: []string{}, Description: "Homepage sections and categories"},
		{Method: http.MethodGet, Path: "/api/popular-searches", Params: []string{}, Description: "Terms everyone is searching for"},
		{Method: http.MethodGet, Path: "/api/movie/{subject_id}", Params: []string{"subject_id (path)"}, Description: "Movie details"},
		{Method: http.MethodGet, Path: "/api/series/{subject_id}", Params: []string{"subject_id (path)"}, Description: "TV series details"},
	}
	if s.metrics != nil {
		list = append(list, endpoint{Method: http.MethodGet, Path: s.opts.MetricsPath, Params: []string{}, Description: "Prometheus metrics"})
	}
	return list
}

func (s *Server) handleDocs(*http.Request) (Fields, error) {
	return Fields{
		{Key: "endpoints", Value: s.endpoints()},
	}, nil
}
