// Package backoff computes delays between successive status polls.
package backoff

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Kind selects how the delay grows with the attempt number
type Kind string

// Supported policy kinds
const (
	Fixed       Kind = "fixed"
	Linear      Kind = "linear"
	Exponential Kind = "exponential"
	EqualJitter Kind = "exp_equal_jitter"
	FullJitter  Kind = "exp_full_jitter"
)

// Policy is a capped delay schedule
type Policy struct {
	Kind Kind          `json:"kind" yaml:"kind"`
	Base time.Duration `json:"base" yaml:"base"`
	Max  time.Duration `json:"max" yaml:"max"`
}

// DefaultPolicy is the video polling schedule: 5s, 10s, 20s, then 30s
func DefaultPolicy() Policy {
	return Policy{Kind: Exponential, Base: 5 * time.Second, Max: 30 * time.Second}
}

// Validate reports an unknown kind
func (p Policy) Validate() error {
	switch p.Kind {
	case Fixed, Linear, Exponential, EqualJitter, FullJitter, "":
		return nil
	default:
		return fmt.Errorf("unknown backoff kind %q", p.Kind)
	}
}

// Delay returns the wait before poll attempt+1. attempt is expected to be >= 0.
// The jitter kinds draw from rng; a nil rng uses a fixed seed.
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	ceiling := p.Max
	if ceiling <= 0 {
		ceiling = base
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	switch p.Kind {
	case Fixed:
		return min(base, ceiling)
	case Linear:
		return capped(float64(base)*float64(max(1, attempt)), ceiling)
	case EqualJitter:
		upper := exponential(base, ceiling, attempt)
		half := upper / 2
		return half + time.Duration(rng.Int63n(int64(half)+1))
	case FullJitter:
		upper := exponential(base, ceiling, attempt)
		if upper <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(upper) + 1))
	default:
		return exponential(base, ceiling, attempt)
	}
}

func exponential(base, ceiling time.Duration, attempt int) time.Duration {
	return capped(float64(base)*math.Pow(2, float64(attempt)), ceiling)
}

// capped converts d to a Duration without overflowing past ceiling
func capped(d float64, ceiling time.Duration) time.Duration {
	if d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}
