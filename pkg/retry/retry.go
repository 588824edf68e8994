package retry

import (
	"context"
	"errors"

	retrygo "github.com/avast/retry-go/v4"

	"instaapi/pkg/config"
	errs "instaapi/pkg/errors"
	"instaapi/pkg/logger"
)

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// Policy retries operations that fail with a retryable error
type Policy struct {
	cfg     config.RetryConfig
	retryIf func(error) bool
	log     logger.Logger
}

// New creates a policy from cfg. MaxAttempts <= 1 disables retries.
func New(cfg config.RetryConfig, log logger.Logger) *Policy {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Policy{
		cfg:     cfg,
		retryIf: DefaultRetryIf,
		log:     log,
	}
}

// WithRetryIf replaces the retry predicate
func (p *Policy) WithRetryIf(fn func(error) bool) *Policy {
	p.retryIf = fn
	return p
}

// Attempts returns the maximum number of tries per operation
func (p *Policy) Attempts() int {
	if p == nil || p.cfg.MaxAttempts < 1 {
		return 1
	}
	return p.cfg.MaxAttempts
}

// Do runs op, retrying with exponential backoff while the predicate holds
// and attempts remain. The last error is returned unwrapped.
func (p *Policy) Do(ctx context.Context, op Operation) error {
	if p.Attempts() == 1 {
		return op()
	}

	opts := []retrygo.Option{
		retrygo.Context(ctx),
		retrygo.Attempts(uint(p.cfg.MaxAttempts)),
		retrygo.Delay(p.cfg.BaseDelay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.RetryIf(p.retryIf),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			p.log.WarnWithFields("retrying request", map[string]interface{}{
				"attempt":    n + 1,
				"max":        p.cfg.MaxAttempts,
				"error_type": string(errs.TypeOf(err)),
				"error":      err.Error(),
			})
		}),
	}
	if p.cfg.MaxDelay > 0 {
		opts = append(opts, retrygo.MaxDelay(p.cfg.MaxDelay))
	}

	return retrygo.Do(retrygo.RetryableFunc(op), opts...)
}

// DefaultRetryIf retries network failures, rate limiting and server errors
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errs.IsRetryable(errs.TypeOf(err))
}
