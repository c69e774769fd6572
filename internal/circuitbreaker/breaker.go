package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker tuning knobs.
type Config struct {
	MaxRequests      uint32        // Max concurrent probes in half-open state
	Timeout          time.Duration // Time in open state before probing again
	FailureThreshold uint32        // Consecutive failures in closed state that trip the breaker
	SuccessThreshold uint32        // Consecutive successes in half-open state that close the breaker
	OnStateChange    func(name string, from, to State)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRequests:      3,
		Timeout:          15 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
	}
}

// Breaker implements the circuit breaker pattern around an arbitrary call.
type Breaker struct {
	name   string
	config Config
	logger *zap.Logger

	mu            sync.Mutex
	state         State
	openedAt      time.Time
	halfOpenCalls uint32
	failures      uint32
	successes     uint32
}

// New creates a circuit breaker in the closed state.
func New(name string, config Config, logger *zap.Logger) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = DefaultConfig().SuccessThreshold
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = DefaultConfig().MaxRequests
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Breaker{name: name, config: config, logger: logger, state: StateClosed}
}

// Execute runs fn if the breaker admits the call, recording the outcome.
// A panic inside fn is counted as a failure and re-raised.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.after(false)
			panic(r)
		}
	}()

	err := fn()
	b.after(err == nil)
	return err
}

// State returns the current state, accounting for open->half-open expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(time.Now())
	return b.state
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(time.Now())

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.MaxRequests {
			return ErrTooManyRequests
		}
		b.halfOpenCalls++
	}
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refresh(now)

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		if b.halfOpenCalls > 0 {
			b.halfOpenCalls--
		}
		if !success {
			b.transition(StateOpen, now)
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed, now)
		}
	}
}

// refresh moves an expired open breaker to half-open. Caller holds b.mu.
func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.config.Timeout {
		b.transition(StateHalfOpen, now)
	}
}

// transition switches state and resets counters. Caller holds b.mu.
func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	b.halfOpenCalls = 0
	if to == StateOpen {
		b.openedAt = now
	}

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, from, to)
	}

	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
