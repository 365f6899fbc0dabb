package scrape

import (
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/cenkalti/log"

	"github.com/cenkalti/scrape/internal/httpscrape"
	"github.com/cenkalti/scrape/internal/logger"
	"github.com/cenkalti/scrape/internal/udpscrape"
)

// Option configures a call to ScrapeInfoHashes or BatchScrapeInfoHashes.
type Option func(*options)

type options struct {
	httpTimeout  time.Duration
	udpTimeout   time.Duration
	udpBatchSize int
	retryPolicy  udpscrape.RetryPolicyFactory
}

func buildOptions(opts []Option) *options {
	o := &options{
		httpTimeout:  httpscrape.DefaultTimeout,
		udpTimeout:   0, // 0 means "bounded only by the retry policy"
		udpBatchSize: udpscrape.MaxBatchSize,
		retryPolicy:  udpscrape.DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHTTPTimeout overrides the per-request timeout used by the HTTP
// scrape client. The default is httpscrape.DefaultTimeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) { o.httpTimeout = d }
}

// WithUDPTimeout bounds the wall-clock time a single UDP tracker task may
// take, on top of whatever its retry policy already allows. Zero (the
// default) means no additional bound is applied.
func WithUDPTimeout(d time.Duration) Option {
	return func(o *options) { o.udpTimeout = d }
}

// WithUDPBatchSize overrides how many info hashes are packed into a single
// UDP scrape request. Values outside (0, udpscrape.MaxBatchSize] are
// clamped to udpscrape.MaxBatchSize.
func WithUDPBatchSize(n int) Option {
	return func(o *options) { o.udpBatchSize = n }
}

// WithRetryPolicy overrides the UDP retransmission schedule. factory is
// called once per connect phase and once per scrape batch, since
// backoff.BackOff carries its own attempt state.
func WithRetryPolicy(factory func() backoff.BackOff) Option {
	return func(o *options) { o.retryPolicy = factory }
}

// WithLogLevel sets the diagnostic log level for the packages this module
// uses internally. Per-tracker failures are only ever visible through this
// logging; they never surface as errors to the caller.
func WithLogLevel(l log.Level) Option {
	return func(o *options) { logger.SetLevel(l) }
}
