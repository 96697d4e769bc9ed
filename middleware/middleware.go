// Package middleware wraps rpc.Invoker with cross-cutting concerns, the
// same composition pattern the teacher's middleware package used at the
// message.RPCMessage level (middleware.go, HandlerFunc/Middleware/Chain),
// lifted one layer up to wrap a whole streaming call instead of a single
// request/response pair.
package middleware

import "srpc/rpc"

// Middleware wraps an Invoker with additional behavior around
// InvokeMethod.
type Middleware func(next rpc.Invoker) rpc.Invoker

// invokerFunc adapts a plain function to the rpc.Invoker interface.
type invokerFunc func(serviceID, methodID string, strm rpc.Stream) (bool, error)

func (f invokerFunc) InvokeMethod(serviceID, methodID string, strm rpc.Stream) (bool, error) {
	return f(serviceID, methodID, strm)
}

// Chain composes middlewares into one, applied outermost-first: the first
// middleware in the list sees the call before the second, and so on, with
// base receiving the call last.
func Chain(middlewares ...Middleware) Middleware {
	return func(base rpc.Invoker) rpc.Invoker {
		next := base
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
