package moviebox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	apiPrefix     = "/wefeed-h5-bff"
	bootstrapPath = apiPrefix + "/app/get-latest-app-pkgs"

	// maxErrorBody caps how much of a failed response ends up in an error message
	maxErrorBody = 256
)

// Factory builds Sessions. It holds only read-only settings.
type Factory struct {
	apiURL  string
	pageURL string
	opts    factoryOptions
	logger  zerolog.Logger
}

// NewFactory creates a new session factory
func NewFactory(apiURL, pageURL string, logger zerolog.Logger, opts ...Option) (*Factory, error) {
	apiURL, err := normalizeBaseURL(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid moviebox API URL: %w", err)
	}
	pageURL, err = normalizeBaseURL(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid moviebox page URL: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Factory{
		apiURL:  apiURL,
		pageURL: pageURL,
		opts:    o,
		logger:  logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute URL", raw)
	}
	return raw, nil
}

// NewSession builds a fresh Session with its own cookie jar. It performs no I/O.
func (f *Factory) NewSession() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	id := uuid.NewString()
	return &Session{
		id:      id,
		apiURL:  f.apiURL,
		pageURL: f.pageURL,
		opts:    f.opts,
		httpClient: &http.Client{
			Timeout:   f.opts.timeout,
			Jar:       jar,
			Transport: f.opts.transport,
		},
		logger: f.logger.With().Str("session", id).Logger(),
	}, nil
}

// Session performs content retrieval. A Session belongs to one caller and is
// not safe for concurrent use.
type Session struct {
	id         string
	apiURL     string
	pageURL    string
	opts       factoryOptions
	httpClient *http.Client
	logger     zerolog.Logger

	bootstrapped bool
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Fetch validates the query and runs it against the upstream
func (s *Session) Fetch(ctx context.Context, q Query) (*Content, error) {
	if q == nil {
		return nil, invalidQuery("nil query")
	}
	if err := q.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := q.fetch(ctx, s)
	if err != nil {
		s.logger.Debug().
			Err(err).
			Str("kind", string(q.Kind())).
			Dur("took", time.Since(start)).
			Msg("MovieBox fetch failed")
		return nil, err
	}
	content.Kind = q.Kind()

	s.logger.Debug().
		Str("kind", string(q.Kind())).
		Dur("took", time.Since(start)).
		Msg("MovieBox fetch completed")
	return content, nil
}

// ensureCookies primes the cookie jar; the upstream refuses content requests
// from sessions that skipped this call
func (s *Session) ensureCookies(ctx context.Context) error {
	if s.bootstrapped {
		return nil
	}

	params := url.Values{}
	params.Set("app_name", "moviebox")
	if _, err := s.doRequest(ctx, http.MethodGet, s.apiURL+bootstrapPath, params, nil, "application/json"); err != nil {
		return fmt.Errorf("failed to initialise session: %w", err)
	}

	s.bootstrapped = true
	return nil
}

// getJSON performs a GET against the JSON API and decodes the data field into out
func (s *Session) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	return s.callJSON(ctx, http.MethodGet, endpoint, params, nil, out)
}

// postJSON performs a POST with a JSON body and decodes the data field into out
func (s *Session) postJSON(ctx context.Context, endpoint string, payload, out any) error {
	return s.callJSON(ctx, http.MethodPost, endpoint, nil, payload, out)
}

func (s *Session) callJSON(ctx context.Context, method, endpoint string, params url.Values, payload, out any) error {
	if err := s.ensureCookies(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	requestURL := s.apiURL + apiPrefix + endpoint
	raw, err := s.doRequest(ctx, method, requestURL, params, body, "application/json")
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Code != 0 {
		return &APIError{
			StatusCode: http.StatusOK,
			Code:       resp.Code,
			Message:    resp.Message,
			URL:        requestURL,
		}
	}
	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// getPage fetches a server-rendered HTML page
func (s *Session) getPage(ctx context.Context, pageURL string) ([]byte, error) {
	if err := s.ensureCookies(ctx); err != nil {
		return nil, err
	}
	return s.doRequest(ctx, http.MethodGet, pageURL, nil, nil, "text/html,application/xhtml+xml")
}

// doRequest performs an HTTP request with the session headers
func (s *Session) doRequest(ctx context.Context, method, requestURL string, params url.Values, body io.Reader, accept string) ([]byte, error) {
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("User-Agent", s.opts.userAgent)
	req.Header.Set("Referer", s.pageURL+"/")
	req.Header.Set("X-Client-Info", fmt.Sprintf(`{"timezone":%q}`, s.opts.timezone))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Trace().
		Str("method", method).
		Str("url", requestURL).
		Msg("Making MovieBox request")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			URL:        requestURL,
		}
	}

	return raw, nil
}
