// Package retry decides retry eligibility and computes backoff delay for
// the pipeline's retry loop. Re-entry into the pipeline itself is the
// orchestrator's job; this package only answers "should we retry, and after
// how long".
package retry

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Strategy selects how delay grows across attempts.
type Strategy string

const (
	Linear      Strategy = "linear"
	Exponential Strategy = "exponential"
)

// DelayFunc computes the delay before the given (1-based) attempt, the
// spec's "retryDelay as a function of attempt" form. When set, it overrides
// Strategy entirely.
type DelayFunc func(attempt int) time.Duration

// Policy is the caller-configured retry policy.
type Policy struct {
	Attempts    int
	StatusCodes []int   // empty means any non-2xx/HTTP-error status qualifies
	Methods     []string // empty means any method qualifies
	Delay       time.Duration
	DelayFunc   DelayFunc
	MaxDelay    time.Duration
	Strategy    Strategy
	Condition   func(ctx context.Context) (bool, error)
}

// EligibilityInput is the state the eligibility chain inspects.
type EligibilityInput struct {
	SignalAborted  bool
	AttemptCount   int // zero-based, "0 = original try"
	Method         string
	IsHTTPError    bool
	HTTPStatus     int
}

// Eligible runs the spec's five-step eligibility chain in order, short
// circuiting at the first failing check.
func (p Policy) Eligible(ctx context.Context, in EligibilityInput) (bool, error) {
	if in.SignalAborted {
		return false, nil
	}
	if in.AttemptCount >= p.Attempts {
		return false, nil
	}
	if len(p.Methods) > 0 && !containsFold(p.Methods, in.Method) {
		return false, nil
	}
	if in.IsHTTPError && len(p.StatusCodes) > 0 && !containsInt(p.StatusCodes, in.HTTPStatus) {
		return false, nil
	}
	if p.Condition != nil {
		ok, err := p.Condition(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// DelayFor computes the delay before the given 1-based attempt.
func (p Policy) DelayFor(attempt int) time.Duration {
	if p.DelayFunc != nil {
		return p.DelayFunc(attempt)
	}
	switch p.Strategy {
	case Exponential:
		return exponentialDelay(p.Delay, p.MaxDelay, attempt)
	default:
		return p.Delay
	}
}

// exponentialDelay computes retryDelay * 2^(attempt-1), clipped at maxDelay,
// built on backoff.ExponentialBackOff's delay sequence (randomization
// disabled so the sequence is exactly the spec's deterministic formula).
func exponentialDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if maxDelay > 0 {
		b.MaxInterval = maxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// DefaultMethods lists the idempotent verbs. Eligible does not fall back to
// it: a Policy with no Methods lets any method retry.
var DefaultMethods = []string{"GET", "HEAD", "OPTIONS", "PUT", "DELETE"}
