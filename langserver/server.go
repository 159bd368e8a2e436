// Package langserver implements the JSON-RPC 2.0 dispatcher a language
// server drives its protocol loop with (spec.md §4.H): request handlers run
// as cooperatively-scheduled tasks, notification handlers run inline on the
// arrival goroutine to preserve strict arrival order, and a single writer
// task serializes everything going back out over the transport.
package langserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fogsong233/eventide-sub001/async"
	"github.com/fogsong233/eventide-sub001/transport"
)

var errTrailingContent = errors.New("langserver: trailing content after JSON value")

// RequestHandler answers one request. It runs as its own async.Task, so it
// may call task.Yield/Await/AwaitFunc to suspend without blocking any other
// task's turn.
type RequestHandler func(task *async.Task, params json.RawMessage) (any, error)

// NotificationHandler reacts to one notification. It always runs inline, on
// the goroutine draining the transport, never spawned — this is what
// guarantees notifications are observed in the exact order they arrived.
type NotificationHandler func(params json.RawMessage)

// Server is a JSON-RPC 2.0 dispatcher over a transport.Transport.
type Server struct {
	t     transport.Transport
	sched *async.Scheduler
	log   *slog.Logger

	mu            sync.Mutex // guards the handler maps and outgoing queue below
	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler
	outgoing      []json.RawMessage
	writerRunning bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for handler/transport failures. If nil,
// slog.Default is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a dispatcher over t. t must not be nil; Start detects a
// nil transport and returns -1 immediately (spec.md §7).
func NewServer(t transport.Transport, opts ...Option) *Server {
	s := &Server{
		t:             t,
		sched:         async.NewScheduler(),
		log:           slog.Default(),
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequestHandler binds method to h. Registering the same method
// twice replaces the previous handler.
func (s *Server) RegisterRequestHandler(method string, h RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[method] = h
}

// RegisterNotificationHandler binds method to h.
func (s *Server) RegisterNotificationHandler(method string, h NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[method] = h
}

// Start runs the dispatcher's main loop until the transport reaches a clean
// end of stream, ctx is canceled, or a fatal transport error occurs. It
// returns 0 on a clean EOF, -1 if the Server was constructed with a nil
// transport, the loop was canceled, or the transport failed.
//
// The loop itself runs as a scheduler task (mirroring the reference
// main_loop, which is scheduled onto its own event loop rather than run on
// the caller directly). It never suspends mid-iteration, so it keeps the
// cooperative token for as long as it has messages to read and dispatch;
// notification handlers it calls inline therefore always run to completion
// before a request task spawned earlier in the same loop gets a chance to
// run. Request and writer tasks only get the token once the loop itself
// suspends — in practice, once it drains to a clean end of stream.
func (s *Server) Start(ctx context.Context) int {
	if s.t == nil {
		return -1
	}

	var readFailed bool
	s.sched.Spawn(func(task *async.Task) error {
		for {
			data, ok, err := s.t.ReadMessage(ctx)
			if err != nil {
				s.log.Error("langserver: transport read failed", slog.Any("error", err))
				readFailed = true
				return err
			}
			if !ok {
				return nil
			}

			env, err := parseEnvelope(data)
			if err != nil {
				s.log.Warn("langserver: dropping malformed message", slog.Any("error", err))
				continue
			}
			if !env.hasMethod() {
				// params with no method: spec.md's documented edge case, silently
				// dropped rather than treated as an error.
				continue
			}

			if env.isNotification() {
				s.dispatchNotification(env)
				continue
			}
			s.dispatchRequest(ctx, env)
		}
	})

	if s.sched.Run(ctx) != 0 {
		return -1
	}
	if readFailed {
		return -1
	}
	return 0
}

func (s *Server) dispatchNotification(env *envelope) {
	s.mu.Lock()
	h, ok := s.notifications[env.Method]
	s.mu.Unlock()
	if !ok {
		return // unknown notifications are silently ignored, unlike requests
	}
	h(env.Params)
}

func (s *Server) dispatchRequest(ctx context.Context, env *envelope) {
	s.mu.Lock()
	h, ok := s.requests[env.Method]
	s.mu.Unlock()

	if !ok {
		s.enqueueResponse(env.ID, nil, &rpcError{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", env.Method)})
		s.startWriterIfNeeded(ctx)
		return
	}

	s.sched.Spawn(func(task *async.Task) error {
		defer s.startWriterIfNeeded(ctx)
		result, err := h(task, env.Params)
		if err != nil {
			s.enqueueResponse(env.ID, nil, &rpcError{Code: CodeRequestFailed, Message: err.Error()})
			return nil
		}
		raw, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			s.enqueueResponse(env.ID, nil, &rpcError{Code: CodeInternalError, Message: marshalErr.Error()})
			return nil
		}
		s.enqueueResponse(env.ID, json.RawMessage(raw), nil)
		return nil
	})
}

type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (s *Server) enqueueResponse(id json.RawMessage, result json.RawMessage, rpcErr *rpcError) {
	resp := wireResponse{JSONRPC: "2.0", ID: id, Result: result, Error: rpcErr}
	raw, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("langserver: failed to marshal response", slog.Any("error", err))
		return
	}
	s.mu.Lock()
	s.outgoing = append(s.outgoing, raw)
	s.mu.Unlock()
}

// startWriterIfNeeded spawns the singleton writer task if one is not already
// draining the outgoing queue (idle/running state machine mirroring the
// reference jsonrpc2 Conn's write-serialization mutex, adapted to this
// port's task model instead of a plain mutex since writes must themselves
// be able to suspend on transport I/O without blocking other tasks).
//
// State machine (spec.md §4.H): idle -(enqueue)-> running; running
// -(queue empty after send)-> idle; running -(write failure)-> idle with
// the queue cleared. A cleared queue means any response still pending at
// the time of the failure is dropped rather than retried on a transport
// that has already demonstrated it cannot accept writes; the main loop's
// own next read is expected to observe the same failure and exit.
func (s *Server) startWriterIfNeeded(ctx context.Context) {
	s.mu.Lock()
	if s.writerRunning {
		s.mu.Unlock()
		return
	}
	s.writerRunning = true
	s.mu.Unlock()

	s.sched.Spawn(func(task *async.Task) error {
		for {
			s.mu.Lock()
			if len(s.outgoing) == 0 {
				s.writerRunning = false
				s.mu.Unlock()
				return nil
			}
			next := s.outgoing[0]
			s.outgoing = s.outgoing[1:]
			s.mu.Unlock()

			_, err := async.AwaitFunc(task, func() (struct{}, error) {
				return struct{}{}, s.t.WriteMessage(ctx, next)
			})
			if err != nil {
				s.log.Error("langserver: transport write failed", slog.Any("error", err))
				s.mu.Lock()
				s.outgoing = nil
				s.writerRunning = false
				s.mu.Unlock()
				return err
			}
		}
	})
}
