package moviebox

import (
	"net/http"
	"time"
)

// Option configures a Factory.
type Option func(*factoryOptions)

// factoryOptions holds configuration shared by every Session a Factory builds.
type factoryOptions struct {
	timeout   time.Duration
	userAgent string
	timezone  string
	transport http.RoundTripper
}

func defaultOptions() factoryOptions {
	return factoryOptions{
		timeout:   30 * time.Second,
		userAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:137.0) Gecko/20100101 Firefox/137.0",
		timezone:  "Africa/Nairobi",
	}
}

// WithTimeout sets the HTTP client timeout for each session.
func WithTimeout(timeout time.Duration) Option {
	return func(o *factoryOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *factoryOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithTimezone sets the timezone reported in the X-Client-Info header.
// The upstream uses it to pick regional listings.
func WithTimezone(tz string) Option {
	return func(o *factoryOptions) {
		if tz != "" {
			o.timezone = tz
		}
	}
}

// WithTransport overrides the round tripper used by sessions.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *factoryOptions) {
		o.transport = rt
	}
}
