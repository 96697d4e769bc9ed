package middleware

import (
	"time"

	"srpc/packet"
	"srpc/rpc"
)

// Timeout aborts the call with packet.Timeout if the invoker has not
// returned within d, the same race-the-clock shape as the teacher's
// TimeOutMiddleware. The invoker goroutine is not forcibly killed when the
// deadline elapses (Go has no such mechanism); strm's cancellation, driven
// independently by the remote peer or by ServerRPC.Close, is what actually
// unblocks a handler stuck on strm.Recv.
func Timeout(d time.Duration) Middleware {
	return func(next rpc.Invoker) rpc.Invoker {
		return invokerFunc(func(serviceID, methodID string, strm rpc.Stream) (bool, error) {
			type result struct {
				found bool
				err   error
			}
			done := make(chan result, 1)
			go func() {
				found, err := next.InvokeMethod(serviceID, methodID, strm)
				done <- result{found, err}
			}()

			select {
			case r := <-done:
				return r.found, r.err
			case <-time.After(d):
				return true, packet.Timeout
			}
		})
	}
}
