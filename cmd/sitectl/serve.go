package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"steelcraft-site/handler"
	"steelcraft-site/internal/app"
	"steelcraft-site/internal/logger"
	"steelcraft-site/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(load loadFunc) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the site and API over plain HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			a, err := app.New(cmd.Context(), cfg, app.Options{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !cfg.IsDevelopment() {
				gin.SetMode(gin.ReleaseMode)
			}
			router, err := newRouter(a.Handler, a.Metrics, a.Log, cfg.TrustedProxies)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      60 * time.Second,
			}
			return run(cmd.Context(), srv, a.Log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

// newRouter serves /metrics itself and sends every other request through the
// Lambda handler. X-Forwarded-For is honoured only from trusted proxies.
func newRouter(h *handler.Handler, m *metrics.Metrics, log logger.Logger, trusted []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trusted); err != nil {
		return nil, fmt.Errorf("sitectl: trusted proxies: %w", err)
	}
	r.Use(gin.Recovery(), requestLogger(log))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.NoRoute(func(c *gin.Context) {
		event, err := handler.EventFromRequest(c.Request)
		if errors.Is(err, handler.ErrBodyTooLarge) {
			writeResponse(c, log, h.Oversize(c.Request.URL.Path))
			return
		}
		if err != nil {
			log.Warn("sitectl: read request", logger.Error(err))
			c.Status(http.StatusBadRequest)
			return
		}
		event.RequestContext.Identity.SourceIP = c.ClientIP()
		resp, err := h.Handle(c.Request.Context(), event)
		if err != nil {
			log.Error("sitectl: handler failed", logger.Error(err))
			c.Status(http.StatusInternalServerError)
			return
		}
		writeResponse(c, log, resp)
	})
	return r, nil
}

func writeResponse(c *gin.Context, log logger.Logger, resp events.APIGatewayProxyResponse) {
	if err := handler.WriteResponse(c.Writer, resp); err != nil {
		log.Warn("sitectl: write response", logger.Error(err))
	}
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("sitectl: request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
}

func run(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("sitectl: listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("sitectl: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("sitectl: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("sitectl: shutdown: %w", err)
	}
	return nil
}
