package middleware

import (
	"time"

	"go.uber.org/zap"

	"srpc/rpc"
)

// Logging logs the service/method, duration, and outcome of every call, the
// same shape as the teacher's LoggingMiddleware but against zap.
// SugaredLogger instead of the standard log package, matching the rest of
// this repo's structured logging.
func Logging(log *zap.SugaredLogger) Middleware {
	return func(next rpc.Invoker) rpc.Invoker {
		return invokerFunc(func(serviceID, methodID string, strm rpc.Stream) (bool, error) {
			start := time.Now()
			found, err := next.InvokeMethod(serviceID, methodID, strm)
			if log == nil {
				return found, err
			}
			duration := time.Since(start)
			if err != nil {
				log.Errorw("rpc call failed",
					"service", serviceID, "method", methodID,
					"duration", duration, "error", err)
			} else {
				log.Debugw("rpc call completed",
					"service", serviceID, "method", methodID,
					"duration", duration, "found", found)
			}
			return found, err
		})
	}
}
