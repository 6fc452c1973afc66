// Package server is the connection acceptor in front of the scheduler. Every
// accepted connection becomes one task: read the request, count the hit and
// answer with a static page.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/hitpool/internal/tracing"
	hpcontext "github.com/vnykmshr/hitpool/pkg/common/context"
	"github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/common/validation"
	"github.com/vnykmshr/hitpool/pkg/hitcounter"
	"github.com/vnykmshr/hitpool/pkg/metrics"
	"github.com/vnykmshr/hitpool/pkg/ratelimit/admission"
	"github.com/vnykmshr/hitpool/pkg/scheduling/scheduler"
)

const moduleName = "server"

const (
	// DefaultAddr is the address ListenAndServe binds when Config.Addr is empty.
	DefaultAddr = "127.0.0.1:5000"

	// DefaultBodyPath is the page served to every client.
	DefaultBodyPath = "hello.html"

	// DefaultReadBufferSize is how much of the request is read before replying.
	DefaultReadBufferSize = 1024

	// DefaultName labels metrics and logs.
	DefaultName = "hitserver"
)

// Stages reported in connection errors and the connection_errors_total metric.
const (
	StageAccept = "accept"
	StageRead   = "read"
	StageCount  = "count"
	StageWrite  = "write"
	StageClose  = "close"
)

// Config holds the acceptor settings. Zero values select the defaults above.
type Config struct {
	Name           string
	Addr           string
	BodyPath       string
	ReadBufferSize int

	// ReadTimeout bounds the request read; zero waits indefinitely.
	ReadTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Registry
	Tracing *tracing.Provider

	// Admission, when set, throttles how fast connections become tasks.
	Admission *admission.Limiter
}

// Server accepts connections and hands each one to an Executor.
type Server struct {
	config  Config
	exec    scheduler.Executor
	counter hitcounter.Counter
	logger  *slog.Logger
}

// New creates a Server. exec runs connection tasks and counter is shared by
// all of them.
func New(config Config, exec scheduler.Executor, counter hitcounter.Counter) (*Server, error) {
	if err := validation.ValidateNotNil(moduleName, "executor", exec); err != nil {
		return nil, err
	}
	if err := validation.ValidateNotNil(moduleName, "counter", counter); err != nil {
		return nil, err
	}
	if config.ReadBufferSize < 0 {
		return nil, validation.ValidatePositive(moduleName, "ReadBufferSize", config.ReadBufferSize)
	}
	if err := validation.ValidateNonNegativeDuration(moduleName, "ReadTimeout", config.ReadTimeout); err != nil {
		return nil, err
	}

	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.BodyPath == "" {
		config.BodyPath = DefaultBodyPath
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:  config,
		exec:    exec,
		counter: counter,
		logger:  logger.With("server", config.Name),
	}, nil
}

// ListenAndServe binds Config.Addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.NewOperationError(moduleName, "listen", err).WithContext(s.config.Addr)
	}
	s.logger.Info("Listening for requests", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is canceled or ln is closed,
// then closes ln and returns nil. Accept failures are logged and the loop
// continues after a delay that doubles from 5ms up to 1s while they persist. Serve does not wait for accepted connections to be handled;
// shutting down the Executor does that.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if hpcontext.IsCanceled(ctx) || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextAcceptBackoff(backoff)
			s.logger.Error("Unable to handle request", "error", err, "retry_in", backoff)
			s.countError(StageAccept)
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			continue
		}
		backoff = 0

		if s.config.Metrics != nil {
			s.config.Metrics.Connections.WithLabelValues(s.config.Name).Inc()
		}

		if s.config.Admission != nil {
			if err := s.config.Admission.Wait(ctx); err != nil {
				conn.Close()
				return nil
			}
		}

		// Queued connections outlive Serve; they finish during executor shutdown.
		taskCtx := context.WithoutCancel(ctx)
		s.exec.Create(scheduler.TaskFunc(func() {
			s.handle(taskCtx, conn)
		}))
	}
}

// handle answers one connection and closes it.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	ctx, span := s.config.Tracing.StartSpan(ctx, "hitpool.connection")
	span.WithAttributes(map[string]string{
		"hitpool.connection_id": id,
		"net.peer.addr":         conn.RemoteAddr().String(),
	})

	err := s.respond(ctx, conn, id, span)
	if cerr := conn.Close(); cerr != nil && err == nil {
		err = errors.NewOperationError(moduleName, StageClose, cerr)
	}

	if err != nil {
		var opErr *errors.OperationError
		stage := StageWrite
		if stderrors.As(err, &opErr) {
			stage = opErr.Operation
		}
		s.logger.Warn("Connection failed", "connection", id, "stage", stage, "error", err)
		s.countError(stage)
	}
	span.End(err)
}

func (s *Server) respond(ctx context.Context, conn net.Conn, id string, span *tracing.Span) error {
	if s.config.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			return errors.NewOperationError(moduleName, StageRead, err)
		}
	}

	buf := make([]byte, s.config.ReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return errors.NewOperationError(moduleName, StageRead, err)
	}
	span.SetInt("hitpool.request_bytes", int64(n))

	hits, countErr := s.counter.Increment(ctx)
	if countErr != nil {
		// Still answer the client; the failure is reported once the reply is out.
		if err := writeResponse(conn, "500 Internal Server Error", nil); err != nil {
			return errors.NewOperationError(moduleName, StageWrite, err)
		}
		return errors.NewOperationError(moduleName, StageCount, countErr)
	}
	span.SetInt("hitpool.hits", int64(hits))

	status := "200 OK"
	body, err := os.ReadFile(s.config.BodyPath)
	if err != nil {
		s.logger.Error("Unable to read body", "path", s.config.BodyPath, "error", err)
		status, body = "500 Internal Server Error", nil
	}

	s.logger.Info("Hit counter", "hits", hits, "connection", id)

	if err := writeResponse(conn, status, body); err != nil {
		return errors.NewOperationError(moduleName, StageWrite, err)
	}
	return nil
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

func nextAcceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptBackoff
	}
	if next := prev * 2; next < maxAcceptBackoff {
		return next
	}
	return maxAcceptBackoff
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func writeResponse(w io.Writer, status string, body []byte) error {
	resp := fmt.Appendf(nil, "HTTP/1.1 %s\r\nContent-Length: %d\r\n\r\n", status, len(body))
	_, err := w.Write(append(resp, body...))
	return err
}

func (s *Server) countError(stage string) {
	if s.config.Metrics != nil {
		s.config.Metrics.ConnectionErrors.WithLabelValues(s.config.Name, stage).Inc()
	}
}
