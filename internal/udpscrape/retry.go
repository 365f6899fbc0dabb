package udpscrape

import (
	"time"

	"github.com/cenkalti/backoff/v3"
)

// RetryPolicyFactory returns a fresh backoff.BackOff for one connect or
// scrape round-trip. It is a factory rather than a single shared BackOff
// because cenkalti/backoff.BackOff is stateful (it counts attempts) and
// every connect phase and every scrape batch starts its own attempt
// budget.
type RetryPolicyFactory func() backoff.BackOff

// DefaultRetryPolicy implements a tightened version of the BEP-15 schedule
// (15s, 30s, 60s, 120s, 240s): it starts at 2s and doubles, capped at 5
// attempts, to fit comfortably inside a caller-supplied per-tracker
// timeout instead of BEP 15's multi-minute reference schedule. Spec
// section 9 leaves the exact schedule as a configuration knob; this is
// only the default.
func DefaultRetryPolicy() backoff.BackOff {
	return &exponentialUDPBackOff{base: 2 * time.Second, maxAttempts: 5}
}

type exponentialUDPBackOff struct {
	base        time.Duration
	maxAttempts int
	attempt     int
}

func (b *exponentialUDPBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.maxAttempts {
		return backoff.Stop
	}
	d := b.base << b.attempt
	b.attempt++
	return d
}

func (b *exponentialUDPBackOff) Reset() { b.attempt = 0 }
