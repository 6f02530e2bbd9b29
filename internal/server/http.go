package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/config"
)

// HTTPService serves an http.Handler as a lifecycle Service.
type HTTPService struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
	listener        net.Listener
}

// NewHTTPService configures a server from cfg.
//
// Precondition: handler and logger must be non-nil.
func NewHTTPService(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *HTTPService {
	return &HTTPService{
		srv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Listen binds the listening socket ahead of Start so the bound address is
// known, which matters for port 0.
func (h *HTTPService) Listen() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	h.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (h *HTTPService) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.srv.Addr
}

// Start serves until Stop is called.
//
// Postcondition: Returns nil after a graceful Stop, or the listen/serve error.
func (h *HTTPService) Start() error {
	if h.listener == nil {
		if err := h.Listen(); err != nil {
			return err
		}
	}
	h.logger.Info("http server listening", zap.String("addr", h.Addr()))
	if err := h.srv.Serve(h.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests for up to the shutdown timeout.
func (h *HTTPService) Stop() {
	timeout := h.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http server shutdown", zap.Error(err))
	}
}
