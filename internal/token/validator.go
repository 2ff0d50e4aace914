package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/utils/clock"

	"github.com/stacklok/toolhive-federation/internal/coordination"
	"github.com/stacklok/toolhive-federation/internal/telemetry"
)

const (
	// DefaultInterval is the wait between two reads of the coordination store
	DefaultInterval = 10 * time.Second

	// DefaultMaxAttempts bounds the number of reads before giving up. Six reads
	// wait at most 50s at the default interval, within the default request timeout.
	DefaultMaxAttempts = 6
)

var (
	// ErrConfiguration is returned for descriptors that cannot be resolved
	// as configured (unknown protocol, missing uri, bad client options)
	ErrConfiguration = errors.New("invalid token configuration")

	// ErrTokenUnavailable is returned when the coordination store never
	// produced the token within the configured number of attempts
	ErrTokenUnavailable = errors.New("token not available in coordination store")
)

// Validator resolves descriptors into literal tokens.
type Validator struct {
	clients     coordination.ClientFactory
	clock       clock.Clock
	interval    time.Duration
	maxAttempts int
	metrics     *telemetry.FederationMetrics
}

// Option configures a Validator
type Option func(*Validator)

// WithClientFactory sets the factory used to build coordination clients
func WithClientFactory(f coordination.ClientFactory) Option {
	return func(v *Validator) {
		v.clients = f
	}
}

// WithClock sets the clock used to wait between reads
func WithClock(c clock.Clock) Option {
	return func(v *Validator) {
		v.clock = c
	}
}

// WithInterval sets the wait between reads. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.interval = d
		}
	}
}

// WithMaxAttempts sets the maximum number of reads. Non-positive values are ignored;
// use WithUnbounded to poll forever.
func WithMaxAttempts(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithUnbounded makes the validator poll until the token appears or the
// context is cancelled.
func WithUnbounded() Option {
	return func(v *Validator) {
		v.maxAttempts = 0
	}
}

// WithMetrics sets the metrics used to count poll attempts
func WithMetrics(m *telemetry.FederationMetrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// NewValidator creates a Validator with the default Consul client factory,
// the real clock, a 10s interval and a bound of 6 attempts.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		clients:     coordination.DefaultClientFactory,
		clock:       clock.RealClock{},
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// MaxWait is the longest time Resolve waits between reads of one descriptor,
// or 0 when polling is unbounded.
func (v *Validator) MaxWait() time.Duration {
	if v.maxAttempts <= 0 {
		return 0
	}
	return time.Duration(v.maxAttempts-1) * v.interval
}

// attemptBackOff stops a backoff policy once max reads have been made
type attemptBackOff struct {
	backoff.BackOff
	max   int
	tries int
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	b.tries++
	if b.tries >= b.max {
		return backoff.Stop
	}
	return b.BackOff.NextBackOff()
}

func (b *attemptBackOff) Reset() {
	b.tries = 0
	b.BackOff.Reset()
}

// newBackOff returns the wait policy of one poll: a constant interval,
// stopped after maxAttempts reads unless polling is unbounded.
func (v *Validator) newBackOff() backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(v.interval)
	if v.maxAttempts > 0 {
		b = &attemptBackOff{BackOff: b, max: v.maxAttempts}
	}
	return b
}

// Resolve returns the literal token described by d. Literal descriptors are
// returned unchanged without any I/O. Consul descriptors are polled every
// interval until the key holds a value.
func (v *Validator) Resolve(ctx context.Context, d Descriptor) (string, error) {
	if d.IsLiteral() {
		return d.Literal, nil
	}

	switch d.Protocol {
	case ProtocolConsul:
		return v.poll(ctx, d)
	default:
		return "", fmt.Errorf("%w: unsupported token protocol %q", ErrConfiguration, d.Protocol)
	}
}

// poll reads d.URI until a value is present. Read failures are treated as
// "not yet available".
func (v *Validator) poll(ctx context.Context, d Descriptor) (string, error) {
	if d.URI == "" {
		return "", fmt.Errorf("%w: uri is required for protocol %s", ErrConfiguration, d.Protocol)
	}

	client, err := v.clients.NewClient(d.Config)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	b := v.newBackOff()
	for attempt := 1; ; attempt++ {
		value, found := client.ReadKey(ctx, d.URI)
		v.metrics.RecordTokenPoll(ctx, d.Protocol, found)
		if found {
			slog.Debug("Token resolved from coordination store", "uri", d.URI, "attempts", attempt)
			return value, nil
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return "", fmt.Errorf("%w: %s after %d attempts", ErrTokenUnavailable, d.URI, attempt)
		}

		slog.Warn("Token not yet available in coordination store",
			"uri", d.URI,
			"attempt", attempt,
			"retry_in", wait)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for token %s: %w", d.URI, ctx.Err())
		case <-v.clock.After(wait):
		}
	}
}
