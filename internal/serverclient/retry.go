package serverclient

import (
	"context"
	"errors"
	"time"
)

// RetryConfig configures the Connect/Retry Supervisor per spec.md §4.8.
type RetryConfig struct {
	// MaxRetries is the number of connection attempts (default 3).
	MaxRetries int
	// Delay is the pause between attempts (default 3s).
	Delay time.Duration
}

// DefaultRetryConfig matches spec.md §6 defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, Delay: 3 * time.Second}
}

// ConnectWithRetry attempts client.Connect up to cfg.MaxRetries times,
// pausing cfg.Delay between attempts. Only a *ConnectionError triggers a
// retry; any other error (notably *ProtocolError) short-circuits
// immediately, per spec.md §4.8/§7. Returns nil on success, or the last
// error observed on exhaustion/short-circuit.
//
// Exactly one supervisor runs at a time per spec.md §3's invariant — callers
// are expected to serialize calls to ConnectWithRetry per Engine instance.
func ConnectWithRetry(ctx context.Context, client *Client, cfg RetryConfig) error {
	return connectWithRetry(ctx, client.Connect, cfg)
}

// ConnectFuncWithRetry is ConnectWithRetry generalized over any connect
// function, so callers depending on an interface (rather than the concrete
// *Client) can still reuse the same retry/backoff loop.
func ConnectFuncWithRetry(ctx context.Context, connect func(context.Context) error, cfg RetryConfig) error {
	return connectWithRetry(ctx, connect, cfg)
}

// connectWithRetry holds the retry loop itself, parameterized over the
// connect call so tests can exercise the retry/backoff contract without a
// live websocket dial.
func connectWithRetry(ctx context.Context, connect func(context.Context) error, cfg RetryConfig) error {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		err := connect(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			logf("connect attempt %d/%d failed with non-retryable error: %v", attempt, cfg.MaxRetries, err)
			return err
		}

		logf("connect attempt %d/%d failed (transient): %v", attempt, cfg.MaxRetries, err)
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	logf("exhausted %d connect attempts, giving up", cfg.MaxRetries)
	return lastErr
}
