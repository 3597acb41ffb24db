package api

import (
	"strconv"
	"strings"
	"time"

	"rifei/application"
	"rifei/infrastructure/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"

	contextKeyRequestID = "request_id"
	contextKeyActor     = "actor"
)

// requestID tags every request with an id, reusing the caller's when present
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger logs each request once it completes and records its latency
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		observability.GetMetrics().RecordHTTPRequest(route, c.Request.Method, status, latency)

		entry := log.WithFields(log.Fields{
			"method":    c.Request.Method,
			"route":     route,
			"status":    status,
			"latencyMs": latency.Milliseconds(),
			"clientIp":  c.ClientIP(),
			"requestId": c.GetString(contextKeyRequestID),
		})
		if actor, ok := actorFrom(c); ok {
			entry = entry.WithField("userId", actor.UserID)
		}

		switch {
		case status >= 500:
			entry.Error("Request processed")
		case status >= 400:
			entry.Info("Request processed")
		default:
			entry.Debug("Request processed")
		}
	}
}

// identity reads the caller from the headers set by the auth proxy. Requests
// without a valid X-User-ID are rejected.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(headerUserID)), 10, 64)
		if err != nil || userID <= 0 {
			respondError(c, errUnauthenticated)
			return
		}

		role := application.RoleUser
		if strings.EqualFold(strings.TrimSpace(c.GetHeader(headerUserRole)), application.RoleAdmin) {
			role = application.RoleAdmin
		}

		c.Set(contextKeyActor, application.Actor{UserID: userID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) (application.Actor, bool) {
	value, ok := c.Get(contextKeyActor)
	if !ok {
		return application.Actor{}, false
	}
	actor, ok := value.(application.Actor)
	return actor, ok
}

// mustActor returns the caller set by identity; routes using it sit behind that middleware
func mustActor(c *gin.Context) application.Actor {
	actor, _ := actorFrom(c)
	return actor
}
