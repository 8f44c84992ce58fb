package transport

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

// Options configures the HTTP transport.
//
// Defaults:
// - Timeout:       30s per attempt
// - Retries:       2 (three attempts in total)
// - RetryInterval: 500ms, growing exponentially
// - Client:        a new http.Client
// - Logger:        logr.Discard()
type Options struct {
	Client        *http.Client
	Header        http.Header
	Timeout       time.Duration
	Retries       int
	RetryInterval time.Duration
	Logger        logr.Logger
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Client:        &http.Client{},
		Header:        http.Header{},
		Timeout:       30 * time.Second,
		Retries:       2,
		RetryInterval: 500 * time.Millisecond,
		Logger:        logr.Discard(),
	}
}

// WithHeader adds a header sent with every request. It may be repeated.
func WithHeader(key, value string) Option {
	return func(o *Options) { o.Header.Add(key, value) }
}

func WithHTTPClient(c *http.Client) Option     { return func(o *Options) { o.Client = c } }
func WithTimeout(d time.Duration) Option       { return func(o *Options) { o.Timeout = d } }
func WithRetries(n int) Option                 { return func(o *Options) { o.Retries = max(n, 0) } }
func WithRetryInterval(d time.Duration) Option { return func(o *Options) { o.RetryInterval = d } }
func WithLogger(l logr.Logger) Option          { return func(o *Options) { o.Logger = l } }
