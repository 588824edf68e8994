// Package retry retries transient request failures with exponential backoff.
//
// A Policy is built from config.RetryConfig. With MaxAttempts of 1 (the
// default) Do simply calls the operation once.
//
//	policy := retry.New(cfg.Retry, log)
//	err := policy.Do(ctx, func() error {
//		return send(ctx)
//	})
//
// DefaultRetryIf classifies errors through pkg/errors:
//   - Network errors, 429 and 5xx responses are retried
//   - Auth, not found, parsing and other client errors are not
//   - Context cancellation is never retried
package retry
