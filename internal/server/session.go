package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/controller"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	// Outbound queue depth per session. A session that cannot drain
	// this many events is closed rather than allowed to stall a table.
	sendBuffer = 256
)

// Session is one websocket connection moving through the
// Connected → Authenticated → Seated states. One reader and one writer
// goroutine per session; everything outbound goes through the buffered
// send queue.
type Session struct {
	id     string
	server *Server
	conn   *websocket.Conn
	logger *log.Logger

	send      chan *Message
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	botID    string
	botName  string
	gameID   string
	seatID   string
	subbed   bool
	handle   controller.SubscriberHandle
	inFlight bool
}

func newSession(s *Server, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Session{
		id:     id,
		server: s,
		conn:   conn,
		logger: s.logger.WithPrefix("session").With("session", id),
		send:   make(chan *Message, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Session) start() {
	go c.writePump()
	go c.readPump()
}

func (c *Session) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		gameID, subbed, handle := c.gameID, c.subbed, c.handle
		c.subbed = false
		c.mu.Unlock()
		if subbed {
			c.server.controller.Unsubscribe(gameID, handle)
		}
		c.cancel()
		_ = c.conn.Close()
	})
}

// enqueue puts a message on the send queue without blocking. It is
// safe from subscriber callbacks running under a table lock; a full
// queue closes the session.
func (c *Session) enqueue(msg *Message) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send queue full, closing session")
		go c.close()
	}
}

func (c *Session) readPump() {
	defer func() {
		c.close()
		c.server.unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read failed", "error", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.systemError(CodeMalformedMessage, "unparseable message envelope")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Session) handleMessage(msg *Message) {
	switch msg.Type {
	case TypeAuthLogin:
		c.handleLogin(msg)
	case TypeGameList:
		c.handleGameList(msg)
	case TypeGameJoin:
		c.handleJoin(msg)
	case TypeGameLeave:
		c.handleLeave(msg)
	case TypeActionSubmit:
		c.handleAction(msg)
	case TypeStateCurrent:
		c.handleStateCurrent(msg)
	case TypeStateActions:
		c.handleStateActions(msg)
	default:
		c.systemError(CodeMalformedMessage, "unknown message type: "+string(msg.Type))
	}
}

// reply sends a <type>.success envelope echoing the request id.
func (c *Session) reply(req *Message, data any) {
	msg, err := NewMessage(req.Type.Success(), data)
	if err != nil {
		c.logger.Error("encode reply failed", "type", req.Type, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	c.enqueue(msg)
}

// replyError sends a <type>.error envelope for a failed request.
func (c *Session) replyError(req *Message, data ErrorData) {
	msg, err := NewMessage(req.Type.Error(), data)
	if err != nil {
		return
	}
	msg.RequestID = req.RequestID
	c.enqueue(msg)
}

func (c *Session) systemError(code ErrorCode, text string) {
	msg, err := NewMessage(TypeSystemError, ErrorData{Code: code, Message: text})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

// authenticated returns the bot id, or replies AUTH_REQUIRED.
func (c *Session) authenticated(req *Message) (string, bool) {
	c.mu.Lock()
	botID := c.botID
	c.mu.Unlock()
	if botID == "" {
		c.replyError(req, ErrorData{Code: CodeAuthRequired, Message: "login first"})
		return "", false
	}
	return botID, true
}

// seated returns the game and seat ids, or replies with the missing
// precondition.
func (c *Session) seated(req *Message) (gameID, seatID string, ok bool) {
	if _, ok := c.authenticated(req); !ok {
		return "", "", false
	}
	c.mu.Lock()
	gameID, seatID = c.gameID, c.seatID
	c.mu.Unlock()
	if gameID == "" {
		c.replyError(req, ErrorData{Code: CodePrecondition, Message: "not seated at a game"})
		return "", "", false
	}
	return gameID, seatID, true
}

func (c *Session) handleLogin(req *Message) {
	var data LoginData
	if err := json.Unmarshal(req.Data, &data); err != nil || data.BotID == "" {
		c.replyError(req, ErrorData{Code: CodeMalformedMessage, Message: "botId required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
	defer cancel()
	identity, err := c.server.validator.Validate(ctx, data.BotID, data.APIKey)
	if err != nil {
		c.replyError(req, errorData(err))
		return
	}

	name := identity.BotName
	if data.Name != "" {
		name = data.Name
	}
	c.mu.Lock()
	c.botID = identity.BotID
	c.botName = name
	c.mu.Unlock()

	c.logger.Info("bot authenticated", "bot", identity.BotID)
	c.reply(req, LoginSuccess{BotID: identity.BotID, BotName: name, SessionID: c.id})
}

func (c *Session) handleGameList(req *Message) {
	if _, ok := c.authenticated(req); !ok {
		return
	}
	c.reply(req, GameListSuccess{Games: c.server.controller.ListGames()})
}

func (c *Session) handleJoin(req *Message) {
	botID, ok := c.authenticated(req)
	if !ok {
		return
	}
	var data JoinData
	if err := json.Unmarshal(req.Data, &data); err != nil || data.GameID == "" || data.Chips <= 0 {
		c.replyError(req, ErrorData{Code: CodeMalformedMessage, Message: "gameId and positive chips required"})
		return
	}

	c.mu.Lock()
	name := c.botName
	already := c.gameID != ""
	c.mu.Unlock()
	if already {
		c.replyError(req, ErrorData{Code: CodeAlreadyInGame, Message: "leave the current game first"})
		return
	}

	// Subscribe and record the seat before joining so the join's own
	// events already find a live route; rolled back if the join fails.
	handle, err := c.server.controller.Subscribe(data.GameID, c.onGameEvent)
	if err != nil {
		c.replyError(req, errorData(err))
		return
	}
	c.mu.Lock()
	c.gameID = data.GameID
	c.seatID = botID
	c.subbed = true
	c.handle = handle
	c.inFlight = false
	c.mu.Unlock()

	if err := c.server.controller.JoinGame(data.GameID, botID, name, data.Chips); err != nil {
		c.server.controller.Unsubscribe(data.GameID, handle)
		c.mu.Lock()
		c.gameID, c.seatID, c.subbed = "", "", false
		c.mu.Unlock()
		c.replyError(req, errorData(err))
		return
	}

	view, err := c.server.controller.SnapshotForSeat(data.GameID, botID)
	if err != nil {
		c.replyError(req, errorData(err))
		return
	}
	c.logger.Info("bot joined game", "bot", botID, "game", data.GameID)
	c.reply(req, JoinSuccess{GameID: data.GameID, SeatID: botID, State: view.Snapshot})
}

func (c *Session) handleLeave(req *Message) {
	gameID, seatID, ok := c.seated(req)
	if !ok {
		return
	}
	if err := c.server.controller.RequestUnseat(gameID, seatID); err != nil {
		c.replyError(req, errorData(err))
		return
	}

	c.mu.Lock()
	subbed, handle := c.subbed, c.handle
	c.gameID, c.seatID, c.subbed = "", "", false
	c.mu.Unlock()
	if subbed {
		c.server.controller.Unsubscribe(gameID, handle)
	}
	c.reply(req, LeaveData{GameID: gameID})
}

func (c *Session) handleAction(req *Message) {
	gameID, seatID, ok := c.seated(req)
	if !ok {
		return
	}
	var data ActionData
	if err := json.Unmarshal(req.Data, &data); err != nil || data.Action == "" {
		c.replyError(req, ErrorData{Code: CodeMalformedMessage, Message: "action required"})
		return
	}
	actionType, err := game.ParseActionType(data.Action)
	if err != nil {
		c.replyError(req, ErrorData{Code: CodeMalformedMessage, Message: err.Error()})
		return
	}

	// One in-flight submission per turn. The flag clears when the next
	// turn starts, or immediately on a rejection so the bot can retry.
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		c.replyError(req, ErrorData{Code: CodeRateLimited, Message: "action already submitted this turn"})
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	err = c.server.controller.ProcessAction(gameID, game.Action{
		SeatID: seatID,
		Type:   actionType,
		Amount: data.Amount,
	})
	if err != nil {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		c.replyError(req, errorData(err))
		return
	}
	c.reply(req, map[string]string{"gameId": gameID})
}

func (c *Session) handleStateCurrent(req *Message) {
	gameID, seatID, ok := c.seated(req)
	if !ok {
		return
	}
	view, err := c.server.controller.SnapshotForSeat(gameID, seatID)
	if err != nil {
		c.replyError(req, errorData(err))
		return
	}
	c.reply(req, StateSuccess{
		State:           view.Snapshot,
		PossibleActions: view.PossibleActions,
		TimeRemainingMs: view.TimeRemaining.Milliseconds(),
	})
}

func (c *Session) handleStateActions(req *Message) {
	gameID, seatID, ok := c.seated(req)
	if !ok {
		return
	}
	actions, err := c.server.controller.PossibleActions(gameID, seatID)
	if err != nil {
		c.replyError(req, errorData(err))
		return
	}
	c.reply(req, ActionsSuccess{PossibleActions: actions})
}

// onGameEvent is the controller subscriber callback. It runs under the
// table lock and must only enqueue. Turn notices become turn.start and
// turn.warning for the acting seat; everything else is projected for
// this seat and forwarded as event.game.
func (c *Session) onGameEvent(ev game.Event) {
	c.mu.Lock()
	gameID, seatID := c.gameID, c.seatID
	if ev.Type == game.EventTurnStarted && ev.SeatID == seatID {
		c.inFlight = false
	}
	c.mu.Unlock()
	if gameID == "" {
		return
	}

	switch ev.Type {
	case game.EventTurnStarted:
		if ev.SeatID != seatID {
			return
		}
		msg, err := NewMessage(TypeTurnStart, TurnStartData{
			GameID:      gameID,
			SeatID:      seatID,
			TimeLimitMs: ev.TimeLimit.Milliseconds(),
		})
		if err != nil {
			return
		}
		c.enqueue(msg)

	case game.EventTurnWarning:
		if ev.SeatID != seatID {
			return
		}
		msg, err := NewMessage(TypeTurnWarning, TurnWarningData{
			GameID:          gameID,
			SeatID:          seatID,
			TimeRemainingMs: ev.TimeRemaining.Milliseconds(),
		})
		if err != nil {
			return
		}
		c.enqueue(msg)

	default:
		msg, err := NewMessage(TypeGameEvent, GameEventData{
			GameID: gameID,
			Event:  ev.Project(game.SeatAudience(seatID)),
		})
		if err != nil {
			return
		}
		c.enqueue(msg)
	}
}
