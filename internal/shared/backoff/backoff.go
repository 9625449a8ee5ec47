package backoff

import (
	"math/rand/v2"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

type (
	// Strategy returns how long to wait before the next attempt given the number
	// of consecutive failures.
	Strategy interface {
		Backoff(retries int) time.Duration
	}

	// Exponential grows the delay by Multiplier per failure up to MaxDelay, with jitter.
	Exponential struct {
		config config.BackoffConfig
	}

	// Fixed always waits the same delay.
	Fixed time.Duration
)

func NewExponentialStrategy(cfg config.BackoffConfig) Exponential {
	return Exponential{
		config: cfg,
	}
}

func (bc Exponential) Backoff(retries int) time.Duration {
	if retries <= 0 {
		return bc.config.BaseDelay
	}

	backoff, maxBackoff := float64(bc.config.BaseDelay), float64(bc.config.MaxDelay)
	for backoff < maxBackoff && retries > 0 {
		backoff *= bc.config.Multiplier
		retries--
	}

	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	backoff *= 1 + bc.config.Jitter*(rand.Float64()*2-1)
	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

func (f Fixed) Backoff(int) time.Duration {
	return time.Duration(f)
}
