package middleware

import (
	"golang.org/x/time/rate"

	"tinyrpc/message"
	"tinyrpc/transport"
)

// RateLimit creates a rate limiter using the token bucket algorithm. Tokens
// are added at rate r per second, up to burst size; each request consumes
// one token, and a request finding the bucket empty is rejected as a
// processor error without reaching next.
//
// The limiter is created once, in the outer closure, and shared across
// every request the returned middleware processes — creating it per
// request would hand every call a fresh full bucket and defeat the limit.
func RateLimit[Req, Rep any](r float64, burst int) Middleware[Req, Rep] {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next transport.Processor[Req, Rep]) transport.Processor[Req, Rep] {
		return func(req message.Request[Req]) message.Response[Rep] {
			if !limiter.Allow() {
				return message.ErrorResponse[Rep](message.NewProcessorError("rate limit exceeded"))
			}
			return next(req)
		}
	}
}
