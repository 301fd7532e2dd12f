package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/micro-ha/appdriver/internal/logging"
)

const wsWriteTimeout = 10 * time.Second

// ErrConnectionClosed is returned for calls issued or pending after the socket closed.
var ErrConnectionClosed = errors.New("websocket connection closed")

// WSExecutor sends commands as request/response frames over one WebSocket:
//
//	-> {"id":1,"method":"queryAppState","sessionId":"...","params":{"bundleId":"..."}}
//	<- {"id":1,"result":4}
//	<- {"id":1,"error":{"error":"no such app","message":"..."}}
//
// Responses are matched to calls by id, so concurrent calls are allowed.
type WSExecutor struct {
	url       string
	sessionID string
	conn      *websocket.Conn
	logger    *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan wsResponse
	readErr error
	closed  chan struct{}
	once    sync.Once
}

type wsRequest struct {
	ID        int64     `json:"id"`
	Method    string    `json:"method"`
	SessionID string    `json:"sessionId,omitempty"`
	Params    Arguments `json:"params"`
}

type wsResponse struct {
	ID     int64           `json:"id"`
	Result any             `json:"result"`
	Error  *wsErrorPayload `json:"error,omitempty"`
	err    error
}

type wsErrorPayload struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace"`
}

// DialWebSocket connects to rawURL (http/https URLs are converted to ws/wss) and
// starts the response reader.
func DialWebSocket(ctx context.Context, rawURL string, cfg Config, logger *slog.Logger) (*WSExecutor, error) {
	wsURL, err := toWebsocketURL(rawURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	header := http.Header{}
	if username := strings.TrimSpace(cfg.Username); username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + cfg.Password))
		header.Set("Authorization", "Basic "+credentials)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	e := &WSExecutor{
		url:       wsURL,
		sessionID: strings.TrimSpace(cfg.SessionID),
		conn:      conn,
		logger:    logger,
		pending:   make(map[int64]chan wsResponse),
		closed:    make(chan struct{}),
	}
	go e.readLoop()
	return e, nil
}

// Execute sends one request frame and waits for the matching response.
func (e *WSExecutor) Execute(ctx context.Context, cmd Command, args Arguments) (any, error) {
	if cmd.IsZero() {
		return nil, &ValidationError{Field: "command", Reason: "is unknown"}
	}

	respCh := make(chan wsResponse, 1)
	e.mu.Lock()
	if e.readErr != nil {
		err := e.readErr
		e.mu.Unlock()
		return nil, &TransportError{Command: cmd, Endpoint: e.url, Attempts: 1, Err: err}
	}
	e.nextID++
	id := e.nextID
	e.pending[id] = respCh
	e.mu.Unlock()

	request := wsRequest{ID: id, Method: cmd.Name(), SessionID: e.sessionID, Params: args}
	if err := e.write(request); err != nil {
		e.forget(id)
		return nil, &TransportError{Command: cmd, Endpoint: e.url, Attempts: 1, Err: err}
	}
	e.logger.Debug("automation frame sent", "command", cmd.Name(), "id", id)

	select {
	case <-ctx.Done():
		e.forget(id)
		return nil, &TransportError{Command: cmd, Endpoint: e.url, Attempts: 1, Err: ctx.Err()}
	case resp := <-respCh:
		if resp.err != nil {
			return nil, &TransportError{Command: cmd, Endpoint: e.url, Attempts: 1, Err: resp.err}
		}
		if resp.Error != nil {
			return nil, &CommandError{
				Command:    cmd,
				Code:       firstNonEmpty(resp.Error.Error, "unknown error"),
				Message:    resp.Error.Message,
				Stacktrace: resp.Error.Stacktrace,
			}
		}
		return resp.Result, nil
	}
}

// Close shuts the socket down and fails pending calls.
func (e *WSExecutor) Close() error {
	var err error
	e.once.Do(func() {
		e.writeMu.Lock()
		_ = e.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		e.writeMu.Unlock()
		close(e.closed)
		err = e.conn.Close()
	})
	return err
}

func (e *WSExecutor) write(request wsRequest) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if err := e.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return e.conn.WriteJSON(request)
}

func (e *WSExecutor) forget(id int64) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func (e *WSExecutor) readLoop() {
	for {
		_, reader, err := e.conn.NextReader()
		if err != nil {
			e.failPending(err)
			return
		}
		decoder := json.NewDecoder(reader)
		decoder.UseNumber()
		var resp wsResponse
		if err := decoder.Decode(&resp); err != nil {
			e.logger.Warn("dropping undecodable frame", "err", err)
			continue
		}

		e.mu.Lock()
		ch, ok := e.pending[resp.ID]
		delete(e.pending, resp.ID)
		e.mu.Unlock()
		if !ok {
			e.logger.Warn("dropping frame for unknown request", "id", resp.ID)
			continue
		}
		ch <- resp
	}
}

func (e *WSExecutor) failPending(cause error) {
	select {
	case <-e.closed:
		cause = ErrConnectionClosed
	default:
		if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			cause = fmt.Errorf("%w: %v", ErrConnectionClosed, cause)
		}
	}

	e.mu.Lock()
	e.readErr = cause
	pending := e.pending
	e.pending = make(map[int64]chan wsResponse)
	e.mu.Unlock()

	for _, ch := range pending {
		ch <- wsResponse{err: cause}
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
