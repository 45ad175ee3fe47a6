package sentry

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// ignoredErrors contains error messages that should be logged but not sent to Sentry.
// These are caused by scanners or normal client disconnects and create noise.
var ignoredErrors = []string{
	"acme/autocert: missing server name",              // TLS connections without SNI
	"first record does not look like a TLS handshake", // Plain HTTP to the TLS port
	"host not configured",                             // SNI not covered by autocert HostPolicy
	"connection reset by peer",                        // Client disconnected abruptly
	"broken pipe",                                     // Write to closed connection
	"use of closed network connection",                // Operation on already closed connection
	"http: request body too large",                    // Oversized client payload
}

// Init configures the global Sentry client. An empty dsn disables reporting
// and returns false.
func Init(dsn, environment, release string) (bool, error) {
	if dsn == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Flush waits for buffered events to be sent.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Middleware returns the gin handler that attaches a Sentry hub to each
// request and recovers panics.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// shouldIgnore checks if an error should be filtered out from Sentry.
func shouldIgnore(err error) bool {
	if err == nil {
		return true
	}

	type timeoutError interface{ Timeout() bool }
	if te, ok := err.(timeoutError); ok && te.Timeout() {
		return true
	}

	errStr := err.Error()
	for _, ignored := range ignoredErrors {
		if strings.Contains(errStr, ignored) {
			return true
		}
	}
	return false
}

// CaptureError logs an error locally and reports it to Sentry.
// Use this for errors outside of HTTP request context (startup, background tasks).
func CaptureError(err error, message string) {
	log.Printf("%s: %v", message, err)
	if shouldIgnore(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("message", message)
		sentry.CaptureException(err)
	})
}

// CaptureErrorWithContext logs an error and reports it to Sentry with HTTP request context.
func CaptureErrorWithContext(c *gin.Context, err error, message string) {
	log.Printf("%s: %v", message, err)
	if shouldIgnore(err) {
		return
	}
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		CaptureError(err, message)
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("message", message)
		scope.SetTag("http.method", c.Request.Method)
		scope.SetTag("http.route", c.FullPath())
		scope.SetExtra("http.remote_ip", c.ClientIP())
		scope.SetExtra("http.user_agent", c.Request.UserAgent())
		if uid := c.GetString("user_id"); uid != "" {
			scope.SetUser(sentry.User{ID: uid})
		}
		if rid := c.Request.Header.Get("X-Request-Id"); rid != "" {
			scope.SetTag("request_id", rid)
		}
		hub.CaptureException(err)
	})
}

// CaptureErrorf logs and reports an error with a formatted message.
func CaptureErrorf(err error, format string, args ...any) {
	CaptureError(err, fmt.Sprintf(format, args...))
}
