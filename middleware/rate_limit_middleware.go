package middleware

import (
	"golang.org/x/time/rate"

	"srpc/packet"
	"srpc/rpc"
)

// RateLimit builds a token-bucket rate limiter around InvokeMethod, the same
// algorithm and library as the teacher's RateLimitMiddleware, reporting a
// rejection as a packet.RateLimited error instead of a bare string on an
// RPCMessage.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next rpc.Invoker) rpc.Invoker {
		return invokerFunc(func(serviceID, methodID string, strm rpc.Stream) (bool, error) {
			if !limiter.Allow() {
				return true, packet.RateLimited
			}
			return next.InvokeMethod(serviceID, methodID, strm)
		})
	}
}
