package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// getClientIP returns the first address found in the trusted proxy headers,
// checked in order, or the connection's remote address. Headers outside the
// list are ignored so a direct client cannot pick its own rate bucket.
func getClientIP(c *gin.Context, trustedHeaders []string) string {
	for _, h := range trustedHeaders {
		v := c.GetHeader(h)
		if v == "" {
			continue
		}
		// List headers like X-Forwarded-For put the originating client first.
		if first := strings.TrimSpace(strings.Split(v, ",")[0]); first != "" {
			return first
		}
	}

	ip := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
