package etl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BartekS5/orderlake/internal/config"
	"github.com/BartekS5/orderlake/internal/telemetry"
)

var errNotVisible = errors.New("object not visible after upload")

// RetryPolicy bounds the publisher's retry loop. Attempts count the first
// try.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
	}
}

// RetryPolicyFromConfig converts the publish section of the configuration.
func RetryPolicyFromConfig(cfg config.PublishConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: time.Duration(cfg.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
		Multiplier:     2,
	}
}

func (r RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(r.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= r.Multiplier
		if time.Duration(d) >= r.MaxBackoff {
			return r.MaxBackoff
		}
	}
	return time.Duration(d)
}

// Publisher promotes a staged artifact to its target key.
type Publisher struct {
	Store  ObjectStore
	Retry  RetryPolicy
	Verify bool

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPublisher(store ObjectStore, retry RetryPolicy, verify bool) *Publisher {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.Multiplier < 1 {
		retry.Multiplier = 1
	}
	return &Publisher{Store: store, Retry: retry, Verify: verify, sleep: sleepContext}
}

// Publish uploads localPath to target. Repeating it with the same target
// overwrites the same object. Transient failures are retried; anything else,
// including running out of attempts, is returned as a Terminal PublishError.
func (p *Publisher) Publish(ctx context.Context, localPath string, target Target) error {
	key := target.Key()

	if _, err := os.Stat(localPath); err != nil {
		telemetry.PublishAttemptsTotal.With("terminal").Inc()
		return &PublishError{Kind: Terminal, Key: key, Err: fmt.Errorf("staged artifact: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= p.Retry.MaxAttempts; attempt++ {
		err := p.attempt(ctx, localPath, key)
		if err == nil {
			telemetry.PublishAttemptsTotal.With("success").Inc()
			log.Info().Str("key", key).Int("attempt", attempt).Msg("artifact published")
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			telemetry.PublishAttemptsTotal.With("terminal").Inc()
			return &PublishError{Kind: Terminal, Key: key, Attempts: attempt, Err: err}
		}
		telemetry.PublishAttemptsTotal.With("transient").Inc()

		if attempt == p.Retry.MaxAttempts {
			break
		}
		wait := p.Retry.backoff(attempt)
		log.Warn().Err(err).Str("key", key).Int("attempt", attempt).
			Int("max_attempts", p.Retry.MaxAttempts).Dur("backoff", wait).Msg("upload failed, retrying")
		if err := p.sleep(ctx, wait); err != nil {
			return &PublishError{Kind: Terminal, Key: key, Attempts: attempt, Err: err}
		}
	}

	return &PublishError{
		Kind:     Terminal,
		Key:      key,
		Attempts: p.Retry.MaxAttempts,
		Err:      fmt.Errorf("retries exhausted: %w", lastErr),
	}
}

func (p *Publisher) attempt(ctx context.Context, localPath, key string) error {
	if err := p.Store.Upload(ctx, localPath, key); err != nil {
		return err
	}
	if !p.Verify {
		return nil
	}
	ok, err := p.Store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errNotVisible
	}
	return nil
}

// isTransient treats cancellation as final and defers to the backend's own
// classification when it has one. Unclassified errors are retried.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
