package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultDatasetURL is the public portal export of the incident table.
const DefaultDatasetURL = "https://data.cityofchicago.org/resource/ijzp-q8t2.csv"

// Retry controls download retries on 429/5xx and transient network errors.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetry returns three attempts with 500ms base backoff capped at 4s.
func DefaultRetry() Retry {
	return Retry{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

// StatusError is a non-2xx response from the data portal.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
}

// Download fetches url into dest, writing through a temp file so a failed
// transfer never leaves a truncated dataset behind.
func Download(ctx context.Context, url, dest string, timeout time.Duration, retry Retry) (int64, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	backoff := retry.BaseDelay
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	client := &http.Client{Timeout: timeout}

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, wait, err := downloadOnce(ctx, client, url, dest)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if wait < 0 || attempt == retry.MaxAttempts {
			break
		}
		if wait == 0 {
			wait = withJitter(backoff)
			if retry.MaxDelay > 0 && wait > retry.MaxDelay {
				wait = retry.MaxDelay
			}
			backoff *= 2
		}
		slog.Warn("download failed, retrying", "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}
	return 0, fmt.Errorf("fetch: %w", lastErr)
}

// downloadOnce makes one attempt. wait is negative for errors not worth
// retrying, zero for the default backoff, or the server's Retry-After.
func downloadOnce(ctx context.Context, client *http.Client, url, dest string) (n int64, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, -1, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if isRetryableNetErr(err) {
			return 0, 0, err
		}
		return 0, -1, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		se := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
		if !se.retryable() {
			return 0, -1, se
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				return 0, time.Duration(secs) * time.Second, se
			}
		}
		return 0, 0, se
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, -1, fmt.Errorf("create: %w", err)
	}
	n, err = io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		// a body cut short is worth another attempt
		return 0, 0, fmt.Errorf("download: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, -1, fmt.Errorf("atomic rename: %w", err)
	}
	return n, 0, nil
}

func isRetryableNetErr(err error) bool {
	// net errors like timeouts
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	// EOF or connection reset
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

func withJitter(d time.Duration) time.Duration {
	// jitter factor in [0.8, 1.2)
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
