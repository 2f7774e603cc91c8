package remote

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// EndpointType represents the remote call categories that are limited separately
type EndpointType string

const (
	EndpointList    EndpointType = "list"
	EndpointContent EndpointType = "content"
)

// SafeRateLimiter manages rate limiting with a safety buffer below the store quota
type SafeRateLimiter struct {
	limiters map[EndpointType]*rate.Limiter
}

// NewSafeRateLimiter creates a limiter allowing 80% of perMinute for each endpoint.
// Content downloads get a burst of 4 so a multi-file average does not serialize fully.
func NewSafeRateLimiter(perMinute int) *SafeRateLimiter {
	const safetyFactor = 0.8 // 20% buffer

	if perMinute <= 0 {
		perMinute = 600
	}
	allowed := float64(perMinute) * safetyFactor
	every := time.Duration(float64(time.Minute) / allowed)

	return &SafeRateLimiter{
		limiters: map[EndpointType]*rate.Limiter{
			EndpointList:    rate.NewLimiter(rate.Every(every), 1),
			EndpointContent: rate.NewLimiter(rate.Every(every), 4),
		},
	}
}

// Wait waits for the rate limiter to allow the request
func (s *SafeRateLimiter) Wait(ctx context.Context, endpoint EndpointType) error {
	limiter, ok := s.limiters[endpoint]
	if !ok {
		// Unknown endpoint, use the listing limit
		limiter = s.limiters[EndpointList]
	}

	return limiter.Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (s *SafeRateLimiter) Allow(endpoint EndpointType) bool {
	limiter, ok := s.limiters[endpoint]
	if !ok {
		return false
	}

	return limiter.Allow()
}
