package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/access"
	"github.com/opsdesk-api/internal/auth"
	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/internal/idempotency"
	"github.com/opsdesk-api/internal/metrics"
	"github.com/opsdesk-api/internal/service"
)

// IdempotencyHeader carries the client-chosen key of a mutating request
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks responses served from the idempotency store
const ReplayedHeader = "Idempotent-Replayed"

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests and records request metrics
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(route, c.Request.Method, statusCode, duration)

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if user := auth.CurrentUser(c); user != nil {
			event = event.Str("user_id", user.ID)
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware allows the configured dashboard origins
func corsMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization", IdempotencyHeader},
		ExposeHeaders: []string{"Content-Length", ReplayedHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.CORSOrigins
		conf.AllowCredentials = true
	}
	return cors.New(conf)
}

func deny(c *gin.Context, page string) {
	metrics.AccessDeniedTotal.WithLabelValues(page).Inc()
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
}

// requirePage lets the request through only when the user may open page
func requirePage(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.CanAccessPage(auth.CurrentUser(c), page) {
			deny(c, page)
			return
		}
		c.Next()
	}
}

// requireAnyPage lets the request through when the user may open one of pages
func requireAnyPage(pages ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		for _, page := range pages {
			if access.CanAccessPage(user, page) {
				c.Next()
				return
			}
		}
		deny(c, pages[0])
	}
}

// requireJobAccess keeps field workers on the jobs they are assigned to
func requireJobAccess(jobs service.JobService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := jobs.Authorize(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if errors.Is(err, service.ErrForbidden) {
			deny(c, access.PageJobs)
			return
		}
		if err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireJobTaskAccess applies the job assignment check through the task
func requireJobTaskAccess(tasks service.JobTaskService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := tasks.Authorize(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
		if errors.Is(err, service.ErrForbidden) {
			deny(c, access.PageJobs)
			return
		}
		if err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAnalytics guards the analytics routes
func requireAnalytics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.CanAccessAnalytics(auth.CurrentUser(c)) {
			deny(c, "/analytics")
			return
		}
		c.Next()
	}
}

// requireActive rejects missing or deactivated users on ungated routes
func requireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !access.IsActiveAndAuthorized(auth.CurrentUser(c)) {
			deny(c, "")
			return
		}
		c.Next()
	}
}

// capturingWriter keeps a copy of the body written by the handler
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// idempotencyMiddleware replays the first response of a mutating request
// retried with the same Idempotency-Key. Server errors are not remembered
// so the client can retry them.
func idempotencyMiddleware(store *idempotency.Store, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "idempotency").Logger()

	return func(c *gin.Context) {
		header := c.GetHeader(IdempotencyHeader)
		if header == "" || !store.Enabled() || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		var userID string
		if user := auth.CurrentUser(c); user != nil {
			userID = user.ID
		}
		key := idempotency.Key(userID, c.Request.Method, c.Request.URL.Path, header)
		ctx := c.Request.Context()

		reserved, err := store.Reserve(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Idempotency store unavailable, processing request without it")
			c.Next()
			return
		}

		if !reserved {
			resp, pending, err := store.Lookup(ctx, key)
			if err != nil {
				log.Error().Err(err).Msg("Failed to read idempotent response")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if pending || resp == nil {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this Idempotency-Key is still in progress"})
				return
			}

			metrics.IdempotentReplaysTotal.Inc()
			c.Header(ReplayedHeader, "true")
			c.Data(resp.Status, resp.ContentType, resp.Body)
			c.Abort()
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				log.Warn().Err(err).Msg("Failed to release idempotency key")
			}
			return
		}

		resp := idempotency.Response{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := store.Complete(ctx, key, resp); err != nil {
			log.Warn().Err(err).Msg("Failed to store idempotent response")
		}
	}
}
