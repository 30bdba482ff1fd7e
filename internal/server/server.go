package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zork-argento/gateway/internal/config"
	"github.com/zork-argento/gateway/internal/zork"
)

// Server is the HTTP boundary of the gateway. It owns routing, middleware
// and status-code mapping; all conversation semantics live in zork.Service.
type Server struct {
	log *slog.Logger
	cfg *config.Config
	svc *zork.Service

	startedAt time.Time
	version   string

	ln   net.Listener
	srv  *http.Server
	addr string
}

type Options struct {
	Logger  *slog.Logger
	Config  *config.Config
	Service *zork.Service
	Version string
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("missing Config")
	}
	if opts.Service == nil {
		return nil, errors.New("missing Service")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	addr := strings.TrimSpace(opts.Config.ListenAddr)
	if addr == "" {
		addr = config.DefaultListenAddr
	}

	return &Server{
		log:       logger,
		cfg:       opts.Config,
		svc:       opts.Service,
		startedAt: time.Now(),
		version:   strings.TrimSpace(opts.Version),
		addr:      addr,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln

	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("http server stopped", "error", err)
		}
	}()

	s.log.Info("gateway listening", "addr", s.ln.Addr().String(), "environment", s.cfg.Environment)
	return nil
}

func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(ctx)
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.ln = nil
	return nil
}

// URL returns the base URL once the listener is bound.
func (s *Server) URL() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}
