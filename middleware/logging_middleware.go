package middleware

import (
	"log"
	"time"

	"tinyrpc/message"
	"tinyrpc/transport"
)

// Logging records the call duration and any server-side error for each
// request. It captures the start time before calling next, and logs the
// elapsed time after next returns.
//
// Example output:
//
//	rpc call duration=42µs
//	rpc call error=processor error: rate limit exceeded
func Logging[Req, Rep any]() Middleware[Req, Rep] {
	return func(next transport.Processor[Req, Rep]) transport.Processor[Req, Rep] {
		return func(req message.Request[Req]) message.Response[Rep] {
			start := time.Now()
			resp := next(req)
			log.Printf("rpc call duration=%s", time.Since(start))
			if resp.IsError() {
				log.Printf("rpc call error=%s", resp.Err.Error())
			}
			return resp
		}
	}
}
