package moviebox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream is a stand-in for the MovieBox API and its detail pages
type upstream struct {
	*httptest.Server
	bootstraps atomic.Int32
	requests   atomic.Int32
}

func newUpstream(t *testing.T, routes map[string]http.HandlerFunc) *upstream {
	t.Helper()

	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc(bootstrapPath, func(w http.ResponseWriter, r *http.Request) {
		u.bootstraps.Add(1)
		assert.Equal(t, "moviebox", r.URL.Query().Get("app_name"))
		http.SetCookie(w, &http.Cookie{Name: "account", Value: "guest", Path: "/"})
		writeData(w, map[string]any{"pkgs": []any{}})
	})
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			u.requests.Add(1)
			h(w, r)
		})
	}

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

func newTestSession(t *testing.T, u *upstream) *Session {
	t.Helper()

	factory, err := NewFactory(u.URL, u.URL, zerolog.Nop(), WithTimeout(5*time.Second))
	require.NoError(t, err)

	session, err := factory.NewSession()
	require.NoError(t, err)
	return session
}

func TestNewFactory(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		apiURL  string
		pageURL string
		wantErr string
	}{
		{
			name:    "valid config",
			apiURL:  "https://h5.aoneroom.com/",
			pageURL: "https://moviebox.ph",
		},
		{
			name:    "missing API URL",
			apiURL:  "",
			pageURL: "https://moviebox.ph",
			wantErr: "invalid moviebox API URL",
		},
		{
			name:    "relative page URL",
			apiURL:  "https://h5.aoneroom.com",
			pageURL: "moviebox.ph",
			wantErr: "invalid moviebox page URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.apiURL, tt.pageURL, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://h5.aoneroom.com", factory.apiURL)
		})
	}
}

func TestFactoryOptions(t *testing.T) {
	factory, err := NewFactory("https://h5.aoneroom.com", "https://moviebox.ph", zerolog.Nop(),
		WithTimeout(5*time.Second),
		WithUserAgent("test-agent"),
		WithTimezone("Europe/Oslo"),
	)
	require.NoError(t, err)

	t.Run("sessions inherit settings", func(t *testing.T) {
		session, err := factory.NewSession()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, session.httpClient.Timeout)
		assert.Equal(t, "test-agent", session.opts.userAgent)
		assert.Equal(t, "Europe/Oslo", session.opts.timezone)
	})

	t.Run("sessions are never shared", func(t *testing.T) {
		a, err := factory.NewSession()
		require.NoError(t, err)
		b, err := factory.NewSession()
		require.NoError(t, err)

		assert.NotEqual(t, a.ID(), b.ID())
		assert.NotSame(t, a.httpClient, b.httpClient)
		assert.NotSame(t, a.httpClient.Jar, b.httpClient.Jar)
	})
}

func TestSessionFetchSearch(t *testing.T) {
	u := newUpstream(t, map[string]http.HandlerFunc{
		apiPrefix + "/web/subject/search": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, `{"timezone":"Africa/Nairobi"}`, r.Header.Get("X-Client-Info"))
			assert.NotEmpty(t, r.Header.Get("User-Agent"))

			if cookie, err := r.Cookie("account"); assert.NoError(t, err) {
				assert.Equal(t, "guest", cookie.Value)
			}

			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "inception", body["keyword"])
			assert.EqualValues(t, 1, body["subjectType"])
			assert.EqualValues(t, 2, body["page"])
			assert.EqualValues(t, 24, body["perPage"])

			writeData(w, map[string]any{
				"pager": map[string]any{"hasMore": false, "page": "2"},
				"items": []map[string]any{
					{"subjectId": "1", "title": "Inception"},
					{"subjectId": "2", "title": "Inception: The Cobol Job"},
					{"subjectId": "3", "title": "Inception Behind the Scenes"},
				},
			})
		},
	})
	session := newTestSession(t, u)

	content, err := session.Fetch(context.Background(), SearchQuery{
		Keyword:     "inception",
		SubjectType: SubjectTypeMovies,
		Page:        2,
		PerPage:     24,
	})
	require.NoError(t, err)

	assert.Equal(t, KindSearch, content.Kind)
	require.Len(t, content.Items, 3)
	assert.JSONEq(t, `{"subjectId":"1","title":"Inception"}`, string(content.Items[0]))
	assert.False(t, content.HasMore())
	assert.Equal(t, int32(1), u.bootstraps.Load())
}

func TestSessionBootstrapsOnce(t *testing.T) {
	u := newUpstream(t, map[string]http.HandlerFunc{
		apiPrefix + "/web/subject/everyone-search": func(w http.ResponseWriter, r *http.Request) {
			writeData(w, map[string]any{"everyoneSearch": []map[string]any{{"title": "Wednesday"}}})
		},
	})
	session := newTestSession(t, u)

	for i := 0; i < 3; i++ {
		content, err := session.Fetch(context.Background(), PopularSearchQuery{})
		require.NoError(t, err)
		require.Len(t, content.Searches, 1)
	}

	assert.Equal(t, int32(1), u.bootstraps.Load())
	assert.Equal(t, int32(3), u.requests.Load())
}

func TestSessionFetchTrending(t *testing.T) {
	u := newUpstream(t, map[string]http.HandlerFunc{
		apiPrefix + "/web/subject/trending": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "0", r.URL.Query().Get("page"))
			assert.Equal(t, "18", r.URL.Query().Get("perPage"))

			writeData(w, map[string]any{
				"pager":       map[string]any{"hasMore": true},
				"subjectList": []map[string]any{{"subjectId": "9"}},
			})
		},
	})
	session := newTestSession(t, u)

	content, err := session.Fetch(context.Background(), TrendingQuery{Page: 1, PerPage: 18})
	require.NoError(t, err)

	require.Len(t, content.Items, 1)
	assert.True(t, content.HasMore())
}

func TestSessionFetchHomepage(t *testing.T) {
	u := newUpstream(t, map[string]http.HandlerFunc{
		apiPrefix + "/web/home": func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.URL.Query().Get("host"))
			writeData(w, map[string]any{
				"contents":      []map[string]any{{"title": "Top picks"}},
				"operatingList": []map[string]any{{"type": "BANNER"}, {"type": "SUBJECTS_MOVIE"}},
			})
		},
	})
	session := newTestSession(t, u)

	content, err := session.Fetch(context.Background(), HomepageQuery{})
	require.NoError(t, err)

	assert.Len(t, content.Contents, 1)
	assert.Len(t, content.OperatingList, 2)
}

func TestSessionFetchDetails(t *testing.T) {
	page := `<html><head></head><body>
<div id="app"></div>
<script type="application/json" id="__NUXT_DATA__">{"subject": {"subjectId": "42", "title": "Inception"}}</script>
</body></html>`

	u := newUpstream(t, map[string]http.HandlerFunc{
		"/movies/inception-abc": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "42", r.URL.Query().Get("id"))
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(page))
		},
	})
	session := newTestSession(t, u)
	item := Item(`{"subjectId":"42","detailPath":"inception-abc","title":"Inception"}`)

	t.Run("movie", func(t *testing.T) {
		content, err := session.Fetch(context.Background(), MovieDetailsQuery{Item: item})
		require.NoError(t, err)
		assert.Equal(t, KindMovieDetails, content.Kind)
		assert.JSONEq(t, `{"subject":{"subjectId":"42","title":"Inception"}}`, string(content.Detail))
	})

	t.Run("series", func(t *testing.T) {
		content, err := session.Fetch(context.Background(), TVSeriesDetailsQuery{Item: item})
		require.NoError(t, err)
		assert.Equal(t, KindTVSeriesDetails, content.Kind)
		assert.NotNil(t, content.Detail)
	})
}

func TestSessionErrors(t *testing.T) {
	u := newUpstream(t, map[string]http.HandlerFunc{
		apiPrefix + "/web/home": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
		},
		apiPrefix + "/web/subject/everyone-search": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"code": 407, "message": "sign expired"})
		},
	})

	t.Run("http status", func(t *testing.T) {
		_, err := newTestSession(t, u).Fetch(context.Background(), HomepageQuery{})
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		assert.Contains(t, err.Error(), "upstream exploded")
	})

	t.Run("result code", func(t *testing.T) {
		_, err := newTestSession(t, u).Fetch(context.Background(), PopularSearchQuery{})
		require.Error(t, err)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 407, apiErr.Code)
		assert.Contains(t, err.Error(), "sign expired")
	})

	t.Run("transport failure", func(t *testing.T) {
		factory, err := NewFactory("http://127.0.0.1:1", "http://127.0.0.1:1", zerolog.Nop(), WithTimeout(time.Second))
		require.NoError(t, err)
		session, err := factory.NewSession()
		require.NoError(t, err)

		_, err = session.Fetch(context.Background(), HomepageQuery{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialise session")
	})
}

func TestSessionRejectsInvalidQueries(t *testing.T) {
	u := newUpstream(t, nil)
	session := newTestSession(t, u)

	tests := []struct {
		name  string
		query Query
	}{
		{"nil query", nil},
		{"empty keyword", SearchQuery{Keyword: " ", Page: 1, PerPage: 24}},
		{"page zero", SearchQuery{Keyword: "x", Page: 0, PerPage: 24}},
		{"per page too large", TrendingQuery{Page: 1, PerPage: 500}},
		{"per page zero", TrendingQuery{Page: 1, PerPage: 0}},
		{"details without address", MovieDetailsQuery{Item: Item(`{"title":"x"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.Fetch(context.Background(), tt.query)
			require.Error(t, err)
		})
	}

	assert.Equal(t, int32(0), u.bootstraps.Load())
	assert.Equal(t, int32(0), u.requests.Load())
}
