package middleware

import (
	"fmt"

	"go.uber.org/zap"

	"srpc/packet"
	"srpc/rpc"
)

// Recover converts a panic inside next.InvokeMethod into a packet.
// Unimplemented error instead of crashing the calling goroutine. ServerRPC
// already recovers panics from the top-level invoker it was constructed
// with, so this is belt-and-suspenders for invokers composed and driven
// outside of a ServerRPC worker — e.g. a Mux invoked directly from a test,
// or an inner invoker dispatched from the rpcstream tunnel.
func Recover(log *zap.SugaredLogger) Middleware {
	return func(next rpc.Invoker) rpc.Invoker {
		return invokerFunc(func(serviceID, methodID string, strm rpc.Stream) (found bool, err error) {
			defer func() {
				if r := recover(); r != nil {
					if log != nil {
						log.Errorw("invoker panicked", "service", serviceID, "method", methodID, "panic", r)
					}
					found = true
					err = packet.NewErr(packet.Unimplemented, fmt.Sprintf("panic: %v", r))
				}
			}()
			return next.InvokeMethod(serviceID, methodID, strm)
		})
	}
}
