package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"

	"github.com/chazu/tessera/vm"
)

var log = commonlog.GetLogger("tessera.server")

// Server is the evaluation server. Connect clients (HTTP/JSON, and gRPC
// over h2c) are served by Handler; native gRPC clients can also be served
// on a separate listener with ServeGRPC.
type Server struct {
	sessions   *SessionStore
	eval       *EvalService
	sessionSvc *SessionService
	mux        *http.ServeMux
	grpc       *grpc.Server

	mu   sync.Mutex
	http *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	resolver   vm.Resolver
	interpOpts []vm.Option
	timeout    time.Duration
}

// WithResolver sets the resolver evaluations use to satisfy imports.
func WithResolver(r vm.Resolver) ServerOption {
	return func(c *serverConfig) { c.resolver = r }
}

// WithInterpreterOptions adds options applied to every interpreter the
// server creates, such as a step limit.
func WithInterpreterOptions(opts ...vm.Option) ServerOption {
	return func(c *serverConfig) { c.interpOpts = append(c.interpOpts, opts...) }
}

// WithTimeout bounds the wall-clock time of each Evaluate call.
func WithTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.timeout = d }
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	factory := func(out *bytes.Buffer) *vm.Interpreter {
		options := append([]vm.Option(nil), cfg.interpOpts...)
		if cfg.resolver != nil {
			options = append(options, vm.WithResolver(cfg.resolver))
		}
		in := vm.NewInterpreter(options...)
		vm.RegisterHostFuncs(in, out)
		return in
	}

	sessions := NewSessionStore(factory)
	s := &Server{
		sessions:   sessions,
		eval:       NewEvalService(sessions, factory, cfg.timeout),
		sessionSvc: NewSessionService(sessions, factory),
		mux:        http.NewServeMux(),
		grpc:       grpc.NewServer(),
	}

	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, s.eval.Evaluate))
	s.mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, s.eval.CheckSyntax))
	s.mux.Handle(CreateSessionProcedure, connect.NewUnaryHandler(CreateSessionProcedure, s.sessionSvc.CreateSession))
	s.mux.Handle(DestroySessionProcedure, connect.NewUnaryHandler(DestroySessionProcedure, s.sessionSvc.DestroySession))
	s.mux.Handle(CompleteProcedure, connect.NewUnaryHandler(CompleteProcedure, s.sessionSvc.Complete))

	s.RegisterGRPC(s.grpc)
	return s
}

// Handler returns the HTTP handler serving the Connect services.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves the Connect services on addr, accepting HTTP/1.1
// and unencrypted HTTP/2 so that gRPC clients can connect too. It returns
// nil after Stop.
func (s *Server) ListenAndServe(addr string) error {
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		Protocols:         &protocols,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	log.Infof("evaluation server listening on %s", addr)
	log.Infof("  Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves the native gRPC transport on lis until Stop.
func (s *Server) ServeGRPC(lis net.Listener) error {
	log.Infof("gRPC listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down both transports and destroys every session.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			log.Warningf("http shutdown: %s", err)
		}
		cancel()
	}
	s.grpc.Stop()
	s.sessions.Close()
}
