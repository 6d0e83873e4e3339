package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives inbound request measurements.
// *observability.Metrics satisfies it.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
	IncrementActiveRequests()
	DecrementActiveRequests()
}

// Metrics returns a middleware that records request count, latency and
// in-flight requests. Requests are labelled by route template; unmatched
// paths share one label.
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		recorder.IncrementActiveRequests()
		defer recorder.DecrementActiveRequests()

		c.Next()

		recorder.RecordRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
