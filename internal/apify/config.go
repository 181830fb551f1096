// Package apify is a client for the subset of the Apify REST API v2 that
// ActorRun needs: token verification, actor listing, input schema lookup,
// and synchronous-style actor runs with dataset retrieval.
package apify

import "time"

// DefaultBaseURL is the production Apify API root.
const DefaultBaseURL = "https://api.apify.com/v2"

// Default client settings.
const (
	DefaultTimeout       = 90 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = 1 * time.Second
	DefaultWaitForFinish = 60 // seconds; the platform caps this at 60
	DefaultPollInterval  = 1 * time.Second
	DefaultRunWait       = 10 * time.Minute
	DefaultPageSize      = 1000
)

// Config holds all configuration for the Apify API client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.apify.com/v2.
	BaseURL string

	// Token is the user's Apify API token.
	Token string

	// Timeout is the HTTP client timeout for each request. It must exceed
	// WaitForFinish, which the platform holds the request open for.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for idempotent requests.
	MaxRetries int

	// RetryDelay is the initial delay between retries (exponential backoff applied).
	RetryDelay time.Duration

	// WaitForFinish is the waitForFinish query value, in seconds, used when
	// starting and polling a run.
	WaitForFinish int

	// PollInterval is the pause between run status polls.
	PollInterval time.Duration

	// RunWait bounds the total time spent waiting for a run. Zero means no bound.
	RunWait time.Duration

	// PageSize is the page size for list and dataset item requests.
	PageSize int
}

// DefaultConfig returns a Config with production settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		WaitForFinish: DefaultWaitForFinish,
		PollInterval:  DefaultPollInterval,
		RunWait:       DefaultRunWait,
		PageSize:      DefaultPageSize,
	}
}

// WithToken returns a copy of the config with the specified token.
func (c Config) WithToken(token string) Config {
	c.Token = token
	return c
}

// WithBaseURL returns a copy of the config with the specified API root.
func (c Config) WithBaseURL(baseURL string) Config {
	c.BaseURL = baseURL
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}

// WithPolling returns a copy of the config with the specified run polling settings.
func (c Config) WithPolling(waitForFinish int, interval, runWait time.Duration) Config {
	c.WaitForFinish = waitForFinish
	c.PollInterval = interval
	c.RunWait = runWait
	return c
}
