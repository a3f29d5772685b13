// Package middleware holds the gin middlewares the HTTP surface wraps
// every route with: request ID propagation, CORS, GSTIN scoping, and
// structured request logging.
package middleware

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID assigns a request ID, reusing an inbound X-Request-ID
// header if the caller already set one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// CORS allows the configured origins, or every origin when
// allowedOrigins contains "*".
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Request-ID, X-GSTIN")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// GSTINScope extracts the acting GSTIN from the X-GSTIN header into
// gin context, scoping each request to a GSTIN rather than a generic
// tenant ID.
func GSTINScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if gstin := c.GetHeader("X-GSTIN"); gstin != "" {
			c.Set("gstin", gstin)
		}
		c.Next()
	}
}

// accessLogEntry is the structured record written per request.
type accessLogEntry struct {
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	GSTIN      string `json:"gstin,omitempty"`
}

// Logger records one JSON line per request via the standard logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := c.Get("request_id")
		gstin, _ := c.Get("gstin")

		entry := accessLogEntry{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if id, ok := requestID.(string); ok {
			entry.RequestID = id
		}
		if g, ok := gstin.(string); ok {
			entry.GSTIN = g
		}
		if raw, err := json.Marshal(entry); err == nil {
			log.Println(string(raw))
		}
	}
}

// Recovery recovers from panics in handler chains.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
