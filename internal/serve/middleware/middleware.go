package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/rs/cors"
	"github.com/stellar/go/support/log"
)

// RecoverHandler recovers from a panic in a downstream handler, logs it,
// and renders a generic Internal error instead of crashing the process.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.Ctx(ctx).WithField("stack", true).Error(err)
			httperror.Internal(ctx, "", err).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler records request duration and status to the
// monitor client, keyed by route/method/status.
func MetricsRequestHandler(m monitor.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(mw, req)
			duration := time.Since(started)

			if m != nil {
				m.MonitorHTTPRequest(req.Method, routePattern(req), mw.Status(), duration)
			}
		})
	}
}

func routePattern(req *http.Request) string {
	if rc := chi.RouteContext(req.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return req.URL.Path
}

// LoggingMiddleware logs the start and end of every request with a
// request-scoped logger carrying the chi request ID.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

		logCtx := log.Set(req.Context(), log.Ctx(req.Context()).WithFields(log.F{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    chimiddleware.GetReqID(req.Context()),
		}))
		req = req.WithContext(logCtx)

		log.Ctx(logCtx).Debug("starting request")
		started := time.Now()
		next.ServeHTTP(mw, req)
		duration := time.Since(started)

		log.Ctx(logCtx).WithFields(log.F{
			"status":   mw.Status(),
			"bytes":    mw.BytesWritten(),
			"duration": duration,
		}).Info("finished request")
	})
}

// CorsMiddleware allows configured origins to hit the API from a browser.
func CorsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		c := cors.New(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})
		return c.Handler(next)
	}
}
