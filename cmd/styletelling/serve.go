package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	logpkg "github.com/allbravos/styletelling-ai/internal/logger"
	"github.com/allbravos/styletelling-ai/internal/metrics"
	chiTransport "github.com/allbravos/styletelling-ai/internal/transport/chi"
	"github.com/allbravos/styletelling-ai/internal/version"
)

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd, appOptions{source: envelope.SourcePipeline})
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.HTTP.Port
	if p := cmd.Int("port"); p > 0 {
		port = p
	}

	a.logger.Info("Starting styletelling API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", port),
		zap.String("db_driver", a.cfg.Database.Driver),
	)

	server := chiTransport.NewServer(a.pipeline, a.registry, a.usage, a.health, a.logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(a.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(a.logger))
	r.Use(chiTransport.BearerAuthMiddleware(a.cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// One line per request; streamed recommendations log once the stream closes.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.String("accept", r.Header.Get("Accept")),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
