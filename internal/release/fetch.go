package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout     = 5 * time.Minute
	defaultAttempts    = 4
	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 10 * time.Second
)

// Fetcher downloads release assets
type Fetcher struct {
	client      *resty.Client
	attempts    uint64
	backoffBase time.Duration
	backoffMax  time.Duration
}

// NewFetcher creates a fetcher with the default timeout and retry policy
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("User-Agent", "rmrf-installer"),
		attempts:    defaultAttempts,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
}

// WithBackoff overrides the retry policy
func (f *Fetcher) WithBackoff(attempts uint64, base, max time.Duration) *Fetcher {
	f.attempts = attempts
	f.backoffBase = base
	f.backoffMax = max
	return f
}

// Fetch downloads url into path, retrying on network errors and on
// transient HTTP statuses. It returns the number of bytes written.
func (f *Fetcher) Fetch(ctx context.Context, url, path string) (int64, error) {
	backoff := retry.NewExponential(f.backoffBase)
	backoff = retry.WithCappedDuration(f.backoffMax, backoff)
	backoff = retry.WithMaxRetries(f.attempts, backoff)

	var written int64
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		logrus.Debugf("GET %s (attempt %d)", url, attempt)

		n, err := f.fetchOnce(ctx, url, path)
		if err != nil {
			if isRetryable(err) {
				logrus.Warnf("Download of %s failed, retrying: %v", url, err)
				return retry.RetryableError(err)
			}
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logrus.Debugf("Downloaded %d bytes from %s", written, url)
	return written, nil
}

// statusError is an HTTP error status
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.url, e.status, http.StatusText(e.status))
}

// networkError is a transport level failure
type networkError struct {
	err error
}

func (e *networkError) Error() string { return e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	switch e := err.(type) {
	case *networkError:
		return true
	case *statusError:
		code := e.status
		return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
	default:
		return false
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, path string) (int64, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &networkError{err: err}
	}

	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return 0, &statusError{url: url, status: resp.StatusCode()}
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, body)
	if err != nil {
		return 0, &networkError{err: err}
	}

	return n, out.Close()
}
