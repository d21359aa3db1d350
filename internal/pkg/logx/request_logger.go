/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains the HTTP middleware that logs the request lifecycle (URI, method,
response status, latency), and the helper that lets later middleware attach fields such
as the authenticated user id to the same per-request logger. Remote addresses are
anonymized before they are logged.
*/
package logx

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// anonymizeIP anonymizes the given IP address string.
// For IPv4, it zeros out the last octet; for IPv6, it keeps the first half followed by "::".
func anonymizeIP(ipStr string) string {
	host, _, err := net.SplitHostPort(ipStr)
	if err == nil {
		ipStr = host
	}

	ip := net.ParseIP(ipStr)
	if ip == nil {
		return "unknown_ip"
	}

	if ip.IsLoopback() {
		return "127.0.0.1"
	}

	if v4 := ip.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String()
	}

	if v6 := ip.To16(); v6 != nil {
		return net.IP(append(append([]byte{}, v6[:8]...), make([]byte, 8)...)).String()
	}

	return ipStr
}

// RequestLogger returns an HTTP middleware that logs one line per completed request.
// The per-request logger is stored in the request context; handlers reach it with Ctx
// and middleware can enrich it with Annotate.
func RequestLogger() func(next http.Handler) http.Handler {
	baseLogger := Logger()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			logger := baseLogger.With().
				Str("component", "http").
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("remote_ip", anonymizeIP(r.RemoteAddr)).
				Str("request_method", r.Method).
				Str("request_uri", r.RequestURI).
				Logger()

			r = r.WithContext(logger.WithContext(r.Context()))
			reqLogger := zerolog.Ctx(r.Context())

			started := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()

			logEvent := reqLogger.Info()
			if status >= 500 {
				logEvent = reqLogger.Error()
			} else if status >= 400 {
				logEvent = reqLogger.Warn()
			}

			logEvent.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(started)).
				Msg("Request completed")
		}

		return http.HandlerFunc(fn)
	}
}

// Annotate adds a string field to the request-scoped logger held by ctx.
// It is a no-op when ctx has no logger attached.
func Annotate(ctx context.Context, key, value string) {
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str(key, value)
	})
}
