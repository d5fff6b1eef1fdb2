package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vietddude/fluxgen/internal/session"
)

const (
	RequestIDHeader = "X-Request-Id"

	requestIDKey  = "request_id"
	sessionCtxKey = "session"
	sessionIDKey  = "sid"
)

// requestID keeps the caller's X-Request-Id or generates one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "HTTP request",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("Panic in handler",
					"request_id", c.GetString(requestIDKey),
					"error", err,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": fmt.Sprintf("internal error: %v", err),
				})
			}
		}()
		c.Next()
	}
}

// withSession binds the cookie's session to the request, creating one when
// the cookie is missing or the session has expired. Mutating requests
// persist the session afterwards.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := sessions.Default(c)
		id, _ := cookie.Get(sessionIDKey).(string)

		sess, created, err := s.manager.GetOrCreate(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if created {
			cookie.Set(sessionIDKey, sess.ID)
			if err := cookie.Save(); err != nil {
				s.log.Warn("Failed to save session cookie", "session", sess.ID, "error", err)
			}
		}
		c.Set(sessionCtxKey, sess)

		c.Next()

		if c.Request.Method != http.MethodGet && !c.GetBool(sessionEndedKey) {
			if err := s.manager.Save(c.Request.Context(), sess); err != nil {
				s.log.Warn("Failed to persist session", "session", sess.ID, "error", err)
			}
		}
	}
}

const sessionEndedKey = "session_ended"

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionCtxKey).(*session.Session)
}
