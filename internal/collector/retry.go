package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Retry policy for ClickHouse pings and record pages
const (
	maxRetryAttempts    = 3
	initialRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 2 * time.Second
)

type errorClass int

const (
	errPermanent errorClass = iota
	errTransient
	errAuth
)

// ClickHouse exception codes for rejected credentials
var authExceptionCodes = map[int32]bool{
	193: true, // WRONG_PASSWORD
	194: true, // REQUIRED_PASSWORD
	497: true, // ACCESS_DENIED
	516: true, // AUTHENTICATION_FAILED
}

var (
	authMarkers = []string{
		"authentication failed",
		"invalid credentials",
		"wrong password",
		"unknown user",
		"access denied",
		"code: 193",
		"code: 194",
		"code: 497",
		"code: 516",
	}
	transientMarkers = []string{
		"timeout",
		"eof",
		"broken pipe",
		"connection reset",
		"connection refused",
		"connection closed",
		"use of closed network connection",
		"network is unreachable",
		"no route to host",
		"no such host",
	}
)

type retryConfig struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	sleep          func(context.Context, time.Duration) error
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:    maxRetryAttempts,
		initialBackoff: initialRetryBackoff,
		maxBackoff:     maxRetryBackoff,
		sleep:          sleepWithContext,
	}
}

func (cfg retryConfig) withDefaults() retryConfig {
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = maxRetryAttempts
	}
	if cfg.initialBackoff <= 0 {
		cfg.initialBackoff = initialRetryBackoff
	}
	if cfg.maxBackoff < cfg.initialBackoff {
		cfg.maxBackoff = max(maxRetryBackoff, cfg.initialBackoff)
	}
	if cfg.sleep == nil {
		cfg.sleep = sleepWithContext
	}
	return cfg
}

// backoff returns the delay after the given failed attempt (1-based)
func (cfg retryConfig) backoff(attempt int) time.Duration {
	d := cfg.initialBackoff
	for i := 1; i < attempt && d < cfg.maxBackoff; i++ {
		d *= 2
	}
	return min(d, cfg.maxBackoff)
}

// executeWithRetry runs fn until it succeeds, fails with a non-transient
// error or exhausts the attempt budget
func executeWithRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	cfg = cfg.withDefaults()

	for attempt := 1; ; attempt++ {
		if err := contextError(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if ctxErr := contextError(ctx); ctxErr != nil {
			return ctxErr
		}

		switch classifyError(err) {
		case errAuth:
			return fmt.Errorf("authentication rejected: %w", err)
		case errPermanent:
			return err
		}
		if attempt >= cfg.maxAttempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		delay := cfg.backoff(attempt)
		slog.Debug("retrying ClickHouse call",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		if err := cfg.sleep(ctx, delay); err != nil {
			if ctxErr := contextError(ctx); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// withTotalTimeoutContext bounds every attempt together, not each one
func withTotalTimeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}

	ctx, cancelCause := context.WithCancelCause(parent)
	timer := time.AfterFunc(timeout, func() {
		cancelCause(context.DeadlineExceeded)
	})

	return ctx, func() {
		timer.Stop()
		cancelCause(context.Canceled)
	}
}

// contextError prefers the cancellation cause, so a total timeout reports
// DeadlineExceeded rather than Canceled
func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			return cause
		}
		return err
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return contextError(ctx)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func classifyError(err error) errorClass {
	if err == nil || errors.Is(err, context.Canceled) {
		return errPermanent
	}

	var chErr *clickhouse.Exception
	if errors.As(err, &chErr) && authExceptionCodes[chErr.Code] {
		return errAuth
	}

	errText := strings.ToLower(err.Error())
	if containsAny(errText, authMarkers) {
		return errAuth
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errTransient
	}
	if containsAny(errText, transientMarkers) {
		return errTransient
	}
	return errPermanent
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
