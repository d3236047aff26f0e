// Package client implements the viewer side of a live session: a supervised
// websocket subscription to the session channel and the live coaching loop
// built on top of it.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// State of the supervised connection.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

const MaxReconnectAttempts = 5

// Backoff holds at the last delay for attempts past its length.
var defaultReconnectDelays = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Conn is one established session-channel connection.
type Conn interface {
	// ReadMessage blocks for the next text message; an error means the
	// connection closed.
	ReadMessage() ([]byte, error)
	Close() error
}

// DialFunc establishes a connection attempt.
type DialFunc func(ctx context.Context) (Conn, error)

// Supervisor drives the viewer connection lifecycle: bounded reconnection
// with ascending backoff while the session is desired live, a terminal
// failed state after exhausting attempts, and manual retry.
type Supervisor struct {
	mu sync.Mutex

	dial         DialFunc
	onTranscript func(text string, isFinal bool)
	onState      func(State)
	log          *logrus.Logger

	delays      []time.Duration
	maxAttempts int

	state       State
	desiredLive bool
	attempts    int
	conn        Conn
	timer       *time.Timer
	gen         int // connection generation; stale callbacks are dropped
}

type SupervisorOption func(*Supervisor)

// WithReconnectDelays overrides the backoff sequence (used by tests).
func WithReconnectDelays(delays []time.Duration) SupervisorOption {
	return func(s *Supervisor) { s.delays = delays }
}

func WithMaxAttempts(n int) SupervisorOption {
	return func(s *Supervisor) { s.maxAttempts = n }
}

func WithStateListener(fn func(State)) SupervisorOption {
	return func(s *Supervisor) { s.onState = fn }
}

func NewSupervisor(dial DialFunc, onTranscript func(text string, isFinal bool), log *logrus.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		dial:         dial,
		onTranscript: onTranscript,
		log:          log,
		delays:       defaultReconnectDelays,
		maxAttempts:  MaxReconnectAttempts,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWebSocketDial dials the session channel at url with gorilla's default
// dialer.
func NewWebSocketDial(url string) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, err
		}
		return wsConn{conn}, nil
	}
}

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w wsConn) Close() error { return w.c.Close() }

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves to connecting and begins the lifecycle. No-op unless idle or
// failed.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateFailed {
		s.mu.Unlock()
		return
	}
	s.desiredLive = true
	s.attempts = 0
	s.setStateLocked(StateConnecting)
	gen := s.bumpGenLocked()
	s.mu.Unlock()

	go s.connect(gen)
}

// Stop tears the connection down and returns to idle from any state. A
// pending reconnect timer is cancelled; close events from the torn-down
// connection no longer schedule reconnects.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.desiredLive = false
	s.attempts = 0
	s.bumpGenLocked()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Retry re-enters connecting from the terminal failed state with a fresh
// attempt counter.
func (s *Supervisor) Retry() {
	s.mu.Lock()
	if s.state != StateFailed {
		s.mu.Unlock()
		return
	}
	s.desiredLive = true
	s.attempts = 0
	s.setStateLocked(StateConnecting)
	gen := s.bumpGenLocked()
	s.mu.Unlock()

	go s.connect(gen)
}

func (s *Supervisor) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	if s.log != nil {
		s.log.WithField("state", string(st)).Debug("session channel state")
	}
	if s.onState != nil {
		go s.onState(st)
	}
}

func (s *Supervisor) bumpGenLocked() int {
	s.gen++
	return s.gen
}

func (s *Supervisor) connect(gen int) {
	conn, err := s.dial(context.Background())

	s.mu.Lock()
	if gen != s.gen || !s.desiredLive {
		s.mu.Unlock()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.handleClose(gen)
		return
	}
	s.conn = conn
	s.attempts = 0
	s.setStateLocked(StateConnected)
	s.mu.Unlock()

	go s.readLoop(gen, conn)
}

func (s *Supervisor) readLoop(gen int, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen)
			return
		}

		var msg struct {
			Type    string `json:"type"`
			Text    string `json:"text"`
			IsFinal bool   `json:"isFinal"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			// Ignore non-JSON frames.
			continue
		}
		if msg.Type == "transcript" && msg.Text != "" && s.onTranscript != nil {
			s.onTranscript(msg.Text, msg.IsFinal)
		}
	}
}

// handleClose runs on dial failure or connection loss. Closes arriving after
// an explicit stop (stale generation or desired not live) are ignored.
func (s *Supervisor) handleClose(gen int) {
	s.mu.Lock()
	if gen != s.gen || !s.desiredLive {
		s.mu.Unlock()
		return
	}
	s.conn = nil

	s.attempts++
	if s.attempts >= s.maxAttempts {
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		return
	}

	delay := s.delays[len(s.delays)-1]
	if s.attempts-1 < len(s.delays) {
		delay = s.delays[s.attempts-1]
	}
	s.setStateLocked(StateReconnecting)
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.gen || !s.desiredLive {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.setStateLocked(StateConnecting)
		s.mu.Unlock()

		s.connect(gen)
	})
	s.mu.Unlock()
}
