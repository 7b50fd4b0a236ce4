// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Middleware returns an access-log middleware. It logs one line per request
// after the handler returns so the latency covers the full response.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger := WithComponentFromContext(r.Context(), "http")
			status := ww.Status()
			if status == 0 {
				// Hijacked connections (websocket upgrades) never write a status.
				status = http.StatusSwitchingProtocols
			}

			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			} else if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				evt = logger.Debug()
			}
			evt.
				Str(FieldEvent, "request.handled").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Str(FieldRemoteAddr, r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
