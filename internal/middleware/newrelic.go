package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the nrgin transaction with the request id and,
// on ride routes, the ride id. It must run after nrgin.Middleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if id := RequestID(c); id != "" {
			txn.AddAttribute("request_id", id)
		}
		if isRideRoute(c.FullPath()) {
			txn.AddAttribute("ride_id", c.Param("id"))
		}

		c.Next()

		// Record errors attached by handlers.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

func isRideRoute(path string) bool {
	return strings.HasPrefix(path, "/v1/rides/:id") || strings.HasPrefix(path, "/v1/admin/rides/:id")
}
