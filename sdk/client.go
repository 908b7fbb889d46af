// Package sdk is the Go client for the poker server's websocket
// protocol. It carries its own copies of the wire types so bot authors
// depend only on this package.
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	dispatchBuffer = 64
)

// Handlers receive server-initiated messages. They run on a single
// goroutine in arrival order, so a handler may issue nested Calls
// without blocking the read loop.
type (
	TurnStartHandler   func(TurnStart)
	TurnWarningHandler func(TurnWarning)
	GameEventHandler   func(GameEvent)
)

// Client is a websocket connection to the server. It is safe for
// concurrent use once Connect returns.
type Client struct {
	url    string
	logger *log.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan *Message
	onTurn    TurnStartHandler
	onWarning TurnWarningHandler
	onEvent   GameEventHandler
	closed    bool

	dispatch chan *Message
	done     chan struct{}
}

// New creates a client for the given server URL. http and https
// schemes are mapped to their websocket counterparts; a bare host:port
// works too. A nil logger discards.
func New(serverURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		url:      serverURL,
		logger:   logger.WithPrefix("sdk"),
		pending:  make(map[string]chan *Message),
		dispatch: make(chan *Message, dispatchBuffer),
		done:     make(chan struct{}),
	}
}

// OnTurnStart registers the handler for turn.start pushes. Register
// before Connect.
func (c *Client) OnTurnStart(h TurnStartHandler) { c.mu.Lock(); c.onTurn = h; c.mu.Unlock() }

// OnTurnWarning registers the handler for turn.warning pushes.
func (c *Client) OnTurnWarning(h TurnWarningHandler) { c.mu.Lock(); c.onWarning = h; c.mu.Unlock() }

// OnGameEvent registers the handler for event.game pushes.
func (c *Client) OnGameEvent(h GameEventHandler) { c.mu.Lock(); c.onEvent = h; c.mu.Unlock() }

// Connect dials the server and starts the read and dispatch loops.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := websocketURL(c.url)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	c.conn = conn
	go c.readLoop()
	go c.dispatchLoop()
	c.logger.Debug("connected", "url", wsURL)
	return nil
}

// Close tears down the connection. Pending calls fail with
// ErrConnectionClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = make(map[string]chan *Message)
	c.mu.Unlock()

	// Pending calls unblock through done; reply channels are buffered
	// so a racing read-loop send never blocks or panics.
	close(c.done)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Done is closed when the connection ends, locally or remotely.
func (c *Client) Done() <-chan struct{} { return c.done }

// ErrConnectionClosed reports a call interrupted by connection
// teardown.
var ErrConnectionClosed = fmt.Errorf("sdk: connection closed")

// Call sends a request and waits for its reply. An <type>.error reply
// comes back as an *APIError.
func (c *Client) Call(ctx context.Context, mt MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Type:      mt,
		Data:      raw,
		Timestamp: time.Now(),
		RequestID: uuid.NewString(),
	}

	ch := make(chan *Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.pending[msg.RequestID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	if err := c.write(msg); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if strings.HasSuffix(string(reply.Type), ".error") {
			var apiErr APIError
			if err := json.Unmarshal(reply.Data, &apiErr); err != nil {
				return nil, fmt.Errorf("%s: undecodable error payload", reply.Type)
			}
			return nil, &apiErr
		}
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

// Login authenticates the connection.
func (c *Client) Login(ctx context.Context, botID, apiKey, name string) (*LoginSuccess, error) {
	reply, err := c.Call(ctx, TypeAuthLogin, LoginData{BotID: botID, APIKey: apiKey, Name: name})
	if err != nil {
		return nil, err
	}
	var out LoginSuccess
	return &out, json.Unmarshal(reply.Data, &out)
}

// ListGames returns the joinable-table directory.
func (c *Client) ListGames(ctx context.Context) ([]GameSummary, error) {
	reply, err := c.Call(ctx, TypeGameList, struct{}{})
	if err != nil {
		return nil, err
	}
	var out GameListSuccess
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return nil, err
	}
	return out.Games, nil
}

// Join takes a seat with the given buy-in.
func (c *Client) Join(ctx context.Context, gameID string, chips int) (*JoinSuccess, error) {
	reply, err := c.Call(ctx, TypeGameJoin, JoinData{GameID: gameID, Chips: chips})
	if err != nil {
		return nil, err
	}
	var out JoinSuccess
	return &out, json.Unmarshal(reply.Data, &out)
}

// Leave gives up the seat. Mid-hand the seat folds out first.
func (c *Client) Leave(ctx context.Context) error {
	_, err := c.Call(ctx, TypeGameLeave, struct{}{})
	return err
}

// SubmitAction plays the given action. Amount is the bet size for bets
// and the raise-to total for raises.
func (c *Client) SubmitAction(ctx context.Context, action string, amount int) error {
	_, err := c.Call(ctx, TypeActionSubmit, ActionData{Action: action, Amount: amount})
	return err
}

// State fetches the current projected snapshot, with legal actions and
// remaining time when it is this seat's turn.
func (c *Client) State(ctx context.Context) (*StateSuccess, error) {
	reply, err := c.Call(ctx, TypeStateCurrent, struct{}{})
	if err != nil {
		return nil, err
	}
	var out StateSuccess
	return &out, json.Unmarshal(reply.Data, &out)
}

// Actions fetches the legal actions for this seat, empty off-turn.
func (c *Client) Actions(ctx context.Context) ([]ValidAction, error) {
	reply, err := c.Call(ctx, TypeStateActions, struct{}{})
	if err != nil {
		return nil, err
	}
	var out ActionsSuccess
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return nil, err
	}
	return out.PossibleActions, nil
}

func (c *Client) write(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read loop ended", "error", err)
			}
			return
		}

		if msg.RequestID != "" {
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			c.mu.Unlock()
			if ok {
				ch <- &msg
				continue
			}
		}

		select {
		case c.dispatch <- &msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) dispatchLoop() {
	for {
		select {
		case msg := <-c.dispatch:
			c.handle(msg)
		case <-c.done:
			return
		}
	}
}

func (c *Client) handle(msg *Message) {
	c.mu.Lock()
	onTurn, onWarning, onEvent := c.onTurn, c.onWarning, c.onEvent
	c.mu.Unlock()

	switch msg.Type {
	case TypeTurnStart:
		if onTurn == nil {
			return
		}
		var data TurnStart
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("bad turn.start payload", "error", err)
			return
		}
		onTurn(data)
	case TypeTurnWarning:
		if onWarning == nil {
			return
		}
		var data TurnWarning
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("bad turn.warning payload", "error", err)
			return
		}
		onWarning(data)
	case TypeGameEvent:
		if onEvent == nil {
			return
		}
		var data GameEvent
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("bad event.game payload", "error", err)
			return
		}
		onEvent(data)
	case TypeSystemError:
		var data APIError
		_ = json.Unmarshal(msg.Data, &data)
		c.logger.Warn("server error", "code", data.Code, "message", data.Message)
	default:
		c.logger.Debug("unhandled message", "type", msg.Type)
	}
}

// websocketURL normalizes a server URL to its ws endpoint.
func websocketURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "ws://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("server url: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}
