package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"igloogo/internal/graphql"
)

// Subprotocol is the GraphQL over WebSocket protocol spoken by WSTransport
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wsResult struct {
	resp *graphql.Response
	err  error
}

// WSConfig for creating a new WSTransport
type WSConfig struct {
	Endpoint          string
	Token             string
	MessageTimeout    time.Duration
	ReconnectInterval time.Duration
	MaxAttempts       int
	Breaker           BreakerConfig
	Logger            zerolog.Logger
}

// WSTransport multiplexes GraphQL operations over one WebSocket connection
type WSTransport struct {
	wsURL             string
	token             string
	messageTimeout    time.Duration
	reconnectInterval time.Duration
	exec              *executor
	logger            zerolog.Logger

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	pending   map[string]chan wsResult
	pendingMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWSTransport creates a new WSTransport. Connect must be called before use.
func NewWSTransport(cfg WSConfig) *WSTransport {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 60 * time.Second
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}

	t := &WSTransport{
		wsURL:             cfg.Endpoint,
		token:             cfg.Token,
		messageTimeout:    cfg.MessageTimeout,
		reconnectInterval: cfg.ReconnectInterval,
		logger:            cfg.Logger.With().Str("component", "ws-transport").Logger(),
		pending:           make(map[string]chan wsResult),
		ctx:               ctx,
		cancel:            cancel,
	}
	t.exec = newExecutor(t, NewCircuitBreaker(cfg.Breaker), cfg.MaxAttempts, t.logger)
	return t
}

// Connect dials the endpoint, completes the connection_init handshake and
// starts the reader goroutine
func (t *WSTransport) Connect(ctx context.Context) error {
	t.connMu.RLock()
	connected := t.conn != nil
	t.connMu.RUnlock()
	if connected {
		return nil
	}

	t.logger.Info().Str("endpoint", t.wsURL).Msg("WebSocket connecting")
	conn, err := t.dial(ctx)
	if err != nil {
		return transportErr("connect", err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()

	t.logger.Info().Str("endpoint", t.wsURL).Msg("WebSocket connected")
	t.wg.Add(1)
	go t.readLoop()
	return nil
}

// Query sends a read query and returns the value at resultPath
func (t *WSTransport) Query(ctx context.Context, query string, resultPath []string) (json.RawMessage, error) {
	return t.exec.query(ctx, query, resultPath)
}

// Mutation sends a mutation and returns the response data
func (t *WSTransport) Mutation(ctx context.Context, mutation string) (json.RawMessage, error) {
	return t.exec.mutation(ctx, mutation)
}

// Stats returns the operation counters
func (t *WSTransport) Stats() Snapshot {
	return t.exec.stats.Snapshot()
}

// Close closes the connection and fails all in-flight operations
func (t *WSTransport) Close() {
	t.cancel()
	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()

	t.failPending(transportErr("ws", ErrClosed))
	t.wg.Wait()
	t.logger.Info().Str("endpoint", t.wsURL).Msg("WebSocket disconnected")
}

func (t *WSTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{Subprotocol},
	}
	conn, _, err := dialer.DialContext(ctx, t.wsURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect WebSocket: %w", err)
	}

	if err := t.handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (t *WSTransport) handshake(conn *websocket.Conn) error {
	init := wsMessage{Type: msgConnectionInit}
	if t.token != "" {
		payload, err := json.Marshal(map[string]string{"token": t.token})
		if err != nil {
			return err
		}
		init.Payload = payload
	}

	if err := conn.WriteJSON(init); err != nil {
		return fmt.Errorf("failed to send connection_init: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(t.messageTimeout))
	defer conn.SetReadDeadline(time.Time{})
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			if err := conn.WriteJSON(wsMessage{Type: msgPong}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

func (t *WSTransport) send(ctx context.Context, req *graphql.Request) (*graphql.Response, error) {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()
	if conn == nil {
		return nil, transportErr("ws", ErrNotConnected)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, transportErr("encode", fmt.Errorf("failed to marshal request: %w", err))
	}

	id := uuid.NewString()
	resultChan := make(chan wsResult, 1)

	t.pendingMu.Lock()
	t.pending[id] = resultChan
	t.pendingMu.Unlock()

	if err := t.write(wsMessage{ID: id, Type: msgSubscribe, Payload: payload}); err != nil {
		t.removePending(id)
		return nil, transportErr("ws", fmt.Errorf("failed to send request: %w", err))
	}

	select {
	case res := <-resultChan:
		return res.resp, res.err
	case <-ctx.Done():
		t.removePending(id)
		_ = t.write(wsMessage{ID: id, Type: msgComplete})
		return nil, transportErr("ws", ctx.Err())
	}
}

func (t *WSTransport) write(msg wsMessage) error {
	t.connMu.RLock()
	conn := t.conn
	t.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (t *WSTransport) removePending(id string) {
	t.pendingMu.Lock()
	delete(t.pending, id)
	t.pendingMu.Unlock()
}

func (t *WSTransport) takePending(id string) (chan wsResult, bool) {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	ch, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return ch, ok
}

func (t *WSTransport) failPending(err error) {
	t.pendingMu.Lock()
	for id, ch := range t.pending {
		ch <- wsResult{err: err}
		delete(t.pending, id)
	}
	t.pendingMu.Unlock()
}

func (t *WSTransport) readLoop() {
	defer t.wg.Done()

	for {
		t.connMu.RLock()
		conn := t.conn
		t.connMu.RUnlock()
		if conn == nil {
			return
		}

		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
			}

			t.logger.Warn().Err(err).Msg("WebSocket connection lost, reconnecting")
			if t.reconnect() {
				continue
			}
			return
		}

		t.dispatch(msg)
	}
}

func (t *WSTransport) dispatch(msg wsMessage) {
	switch msg.Type {
	case msgPing:
		if err := t.write(wsMessage{Type: msgPong}); err != nil {
			t.logger.Debug().Err(err).Msg("pong write failed")
		}

	case msgNext:
		ch, ok := t.takePending(msg.ID)
		if !ok {
			return
		}
		resp, err := graphql.ParseResponse(msg.Payload)
		if err != nil {
			ch <- wsResult{err: transportErr("decode", err)}
			return
		}
		ch <- wsResult{resp: resp}

	case msgError:
		ch, ok := t.takePending(msg.ID)
		if !ok {
			return
		}
		var errs []graphql.Error
		if err := json.Unmarshal(msg.Payload, &errs); err != nil {
			ch <- wsResult{err: transportErr("decode", err)}
			return
		}
		ch <- wsResult{resp: &graphql.Response{Errors: errs}}

	case msgComplete:
		// a completed operation without a next message produced no data
		if ch, ok := t.takePending(msg.ID); ok {
			ch <- wsResult{resp: &graphql.Response{}}
		}

	case msgPong:

	default:
		t.logger.Warn().Str("type", msg.Type).Msg("unexpected WebSocket message")
	}
}

func (t *WSTransport) reconnect() bool {
	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()

	t.failPending(transportErr("ws", ErrNotConnected))

	for {
		select {
		case <-t.ctx.Done():
			t.logger.Info().Msg("WebSocket reconnection stopped (shutdown)")
			return false
		case <-time.After(t.reconnectInterval):
		}

		ctx, cancel := context.WithTimeout(t.ctx, 30*time.Second)
		conn, err := t.dial(ctx)
		cancel()
		if err != nil {
			t.logger.Warn().Err(err).Dur("nextRetry", t.reconnectInterval).Msg("WebSocket reconnection failed, will retry")
			continue
		}

		// Close may have run while the handshake was in progress
		t.connMu.Lock()
		if t.ctx.Err() != nil {
			t.connMu.Unlock()
			conn.Close()
			return false
		}
		t.conn = conn
		t.connMu.Unlock()

		t.logger.Info().Msg("WebSocket reconnected successfully")
		return true
	}
}
