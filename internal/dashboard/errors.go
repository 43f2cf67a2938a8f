package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/logging"
)

// statusClientClosedRequest is nginx's code for a request the client
// abandoned.
const statusClientClosedRequest = 499

// statusFor maps an error kind to its HTTP status.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.InvalidState, fault.InvalidTransition, fault.AlreadyRunning, fault.Conflict:
		return http.StatusConflict
	case fault.EmptyInput, fault.EmptyOutput:
		return http.StatusUnprocessableEntity
	case fault.GeneratorUnavailable:
		return http.StatusServiceUnavailable
	case fault.Timeout:
		return http.StatusGatewayTimeout
	case fault.Cancelled:
		return statusClientClosedRequest
	case fault.Permanent:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string     `json:"error"`
	Kind  fault.Kind `json:"kind"`
}

// respondError writes err as {"error", "kind"} with the mapped status.
func respondError(c *gin.Context, err error) {
	kind := fault.KindOf(err)
	code := statusFor(kind)
	if code >= http.StatusInternalServerError {
		logging.Error("dashboard: request failed", "method", c.Request.Method,
			"path", c.FullPath(), "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(code, errorBody{Error: err.Error(), Kind: kind})
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, op string, err error) {
	respondError(c, fault.Wrap(fault.Permanent, op, err))
}

// requestLog logs each request at debug level.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("dashboard: request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "took", time.Since(start))
	}
}
