// Package ratelimit paces requests sent by an instagram.Session.
//
// Two algorithms are available:
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Allows short bursts, then blocks until the next refill
//
// Sliding Window:
//   - Tracks request timestamps within a moving window
//   - Smoother pacing for steady request patterns
//
// New picks one from a config.RateLimitConfig; when rate limiting is
// disabled it returns Unlimited, which never blocks.
//
//	limiter := ratelimit.New(cfg.RateLimit)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // ctx cancelled while waiting
//	}
package ratelimit
