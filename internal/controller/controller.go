// Package controller owns the fleet of table engines: creation and
// teardown, seat routing, turn timers, hand scheduling and event
// fan-out. Every engine mutation happens under that table's lock; the
// controller's own maps are touched only on session boundaries.
package controller

import (
	"errors"
	"time"

	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/replay"
)

var (
	// ErrGameNotFound is returned for an unknown game id.
	ErrGameNotFound = errors.New("game not found")
	// ErrDuplicateGame rejects creating an id that already exists.
	ErrDuplicateGame = errors.New("game already exists")
	// ErrAlreadyInGame rejects seating a seat that is already seated
	// somewhere; a seat lives in at most one table.
	ErrAlreadyInGame = errors.New("seat already in a game")
	// ErrNotInGame is returned when a seat is not at the named table.
	ErrNotInGame = errors.New("seat not in this game")
	// ErrPreconditionFailed covers operations refused in the current
	// table state, like a manual start by a non-creator.
	ErrPreconditionFailed = errors.New("precondition failed")
)

// QuarantineNotice tells the operator channel a table froze on a fatal
// invariant violation.
type QuarantineNotice struct {
	GameID string
	Reason string
	Time   time.Time
}

// GameSummary is the lightweight listing entry for game.list.
type GameSummary struct {
	ID         string     `json:"id"`
	Phase      game.Phase `json:"phase"`
	HandNumber int        `json:"handNumber"`
	Players    int        `json:"players"`
	MaxPlayers int        `json:"maxPlayers"`
	SmallBlind int        `json:"smallBlind"`
	BigBlind   int        `json:"bigBlind"`
	Joinable   bool       `json:"joinable"`
}

// Options configures a Controller.
type Options struct {
	Logger *log.Logger
	Clock  quartz.Clock

	// Recorder receives every table's event stream. Optional.
	Recorder *replay.Recorder

	// CleanupDelay is how long an empty table lingers before removal.
	CleanupDelay time.Duration
}

// Controller owns the gameId to engine mapping and the seatId to
// gameId index under one coarse lock. Each table serializes its own
// engine behind a per-table mutex.
type Controller struct {
	logger       *log.Logger
	clock        quartz.Clock
	recorder     *replay.Recorder
	cleanupDelay time.Duration

	mu     sync.RWMutex
	tables map[string]*table
	seats  map[string]string

	operator chan QuarantineNotice
}

// New creates an empty controller.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.CleanupDelay == 0 {
		opts.CleanupDelay = 5 * time.Second
	}
	return &Controller{
		logger:       opts.Logger.WithPrefix("controller"),
		clock:        opts.Clock,
		recorder:     opts.Recorder,
		cleanupDelay: opts.CleanupDelay,
		tables:       make(map[string]*table),
		seats:        make(map[string]string),
		operator:     make(chan QuarantineNotice, 16),
	}
}

// Operator returns the channel quarantine notices are published on.
// The channel is buffered; unread notices beyond the buffer are
// dropped rather than blocking a table.
func (c *Controller) Operator() <-chan QuarantineNotice {
	return c.operator
}

// CreateGame registers a new table. creatorID may be empty; when set
// it gates manual starts.
func (c *Controller) CreateGame(gameID string, cfg game.Config, creatorID string) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.tables[gameID]; ok {
		c.mu.Unlock()
		return ErrDuplicateGame
	}
	t := newTable(c, gameID, cfg, creatorID)
	// The recording opens before the table becomes visible, so a join
	// landing on the first instant is never dropped.
	if c.recorder != nil {
		c.recorder.StartRecording(gameID, cfg, t.engine.Snapshot(), t.engine.Seed())
	}
	c.tables[gameID] = t
	c.mu.Unlock()

	t.mu.Lock()
	t.ensureCleanupTimer()
	t.mu.Unlock()

	c.logger.Info("game created", "game", gameID, "maxPlayers", cfg.MaxPlayers,
		"blinds", cfg.SmallBlind, "bigBlind", cfg.BigBlind)
	return nil
}

// RemoveGame tears a table down: final replay flush, timers cancelled,
// subscribers detached, seat index cleaned.
func (c *Controller) RemoveGame(gameID string) error {
	c.mu.Lock()
	t, ok := c.tables[gameID]
	if !ok {
		c.mu.Unlock()
		return ErrGameNotFound
	}
	delete(c.tables, gameID)
	for seatID, gid := range c.seats {
		if gid == gameID {
			delete(c.seats, seatID)
		}
	}
	c.mu.Unlock()

	t.mu.Lock()
	t.removed = true
	t.cancelTimers()
	t.subs = nil
	final := t.engine.Snapshot()
	t.mu.Unlock()

	if c.recorder != nil {
		c.recorder.EndRecording(gameID, final)
	}
	c.logger.Info("game removed", "game", gameID)
	return nil
}

// JoinGame seats a player at a table. A seat id can be at one table
// only; joining cancels any pending empty-table cleanup and triggers
// the auto-start evaluation.
func (c *Controller) JoinGame(gameID, seatID, name string, chips int) error {
	c.mu.Lock()
	if _, seated := c.seats[seatID]; seated {
		c.mu.Unlock()
		return ErrAlreadyInGame
	}
	t, ok := c.tables[gameID]
	if !ok {
		c.mu.Unlock()
		return ErrGameNotFound
	}
	c.seats[seatID] = gameID
	c.mu.Unlock()

	err := t.withEngine(func(e *game.Engine) error {
		return e.AddSeat(seatID, name, chips)
	})
	if err != nil {
		c.mu.Lock()
		delete(c.seats, seatID)
		c.mu.Unlock()
		return err
	}
	c.drainDetached(t)
	return nil
}

// RequestUnseat removes a seat: immediately between hands, otherwise
// the seat plays the hand out folded and leaves when it completes.
func (c *Controller) RequestUnseat(gameID, seatID string) error {
	c.mu.RLock()
	t, ok := c.tables[gameID]
	seatedAt, seated := c.seats[seatID]
	c.mu.RUnlock()
	if !ok {
		return ErrGameNotFound
	}
	if !seated || seatedAt != gameID {
		return ErrNotInGame
	}

	err := t.withEngine(func(e *game.Engine) error {
		if e.Phase().InHand() {
			t.pendingUnseats = append(t.pendingUnseats, seatID)
			return nil
		}
		return e.RemoveSeat(seatID)
	})
	c.drainDetached(t)
	return err
}

// StartGame starts the next hand on request. Manual tables only honor
// the creator when one is set.
func (c *Controller) StartGame(gameID, requesterID string) error {
	t, err := c.table(gameID)
	if err != nil {
		return err
	}
	err = t.withEngine(func(e *game.Engine) error {
		if t.cfg.Start.Mode == game.StartManual && t.creatorID != "" && requesterID != t.creatorID {
			return ErrPreconditionFailed
		}
		return e.StartHand()
	})
	c.drainDetached(t)
	return err
}

// ProcessAction routes a seat's action into its engine.
func (c *Controller) ProcessAction(gameID string, a game.Action) error {
	t, err := c.table(gameID)
	if err != nil {
		return err
	}
	err = t.withEngine(func(e *game.Engine) error {
		return e.ProcessAction(a)
	})
	c.drainDetached(t)
	return err
}

// ForceTimeout applies the timeout action for a seat immediately,
// outside the timer path. Used by operator tooling.
func (c *Controller) ForceTimeout(gameID, seatID string) error {
	t, err := c.table(gameID)
	if err != nil {
		return err
	}
	err = t.withEngine(func(e *game.Engine) error {
		return e.ForceTimeout(seatID)
	})
	c.drainDetached(t)
	return err
}

// Subscribe attaches a callback to the table's event stream. The
// callback runs under the table lock and must not block; sessions
// enqueue onto buffered channels. Removal is by the returned handle.
func (c *Controller) Subscribe(gameID string, fn func(game.Event)) (SubscriberHandle, error) {
	t, err := c.table(gameID)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextSub++
	handle := t.nextSub
	t.subs[handle] = fn
	return handle, nil
}

// Unsubscribe detaches a subscriber by handle.
func (c *Controller) Unsubscribe(gameID string, handle SubscriberHandle) {
	c.mu.RLock()
	t, ok := c.tables[gameID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	t.mu.Lock()
	delete(t.subs, handle)
	t.mu.Unlock()
}

// SnapshotForSeat returns the seat's projected view with its legal
// actions and the remaining turn budget.
func (c *Controller) SnapshotForSeat(gameID, seatID string) (*game.BotView, error) {
	t, err := c.table(gameID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	view, err := t.engine.SnapshotForSeat(seatID)
	if err != nil {
		return nil, err
	}
	if t.turnSeat == seatID {
		if remaining := t.turnDeadline.Sub(c.clock.Now()); remaining > 0 {
			view.TimeRemaining = remaining
		}
	}
	return view, nil
}

// PossibleActions returns the seat's legal actions, empty off-turn.
func (c *Controller) PossibleActions(gameID, seatID string) ([]game.ValidAction, error) {
	t, err := c.table(gameID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.engine.HasSeat(seatID) {
		return nil, game.ErrUnknownSeat
	}
	return t.engine.PossibleActions(seatID), nil
}

// SeatGame returns the game a seat is in, if any.
func (c *Controller) SeatGame(seatID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gameID, ok := c.seats[seatID]
	return gameID, ok
}

// ListGames returns summaries of every table.
func (c *Controller) ListGames() []GameSummary {
	c.mu.RLock()
	tables := make([]*table, 0, len(c.tables))
	for _, t := range c.tables {
		tables = append(tables, t)
	}
	c.mu.RUnlock()

	summaries := make([]GameSummary, 0, len(tables))
	for _, t := range tables {
		t.mu.Lock()
		summaries = append(summaries, GameSummary{
			ID:         t.id,
			Phase:      t.engine.Phase(),
			HandNumber: t.engine.HandNumber(),
			Players:    t.engine.SeatCount(),
			MaxPlayers: t.cfg.MaxPlayers,
			SmallBlind: t.cfg.SmallBlind,
			BigBlind:   t.cfg.BigBlind,
			Joinable:   t.engine.SeatCount() < t.cfg.MaxPlayers && !t.quarantined,
		})
		t.mu.Unlock()
	}
	return summaries
}

// GameCount returns the number of live tables.
func (c *Controller) GameCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Close removes every table, flushing replays.
func (c *Controller) Close() {
	c.mu.RLock()
	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	c.mu.RUnlock()
	for _, id := range ids {
		_ = c.RemoveGame(id)
	}
}

func (c *Controller) table(gameID string) (*table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return t, nil
}

// drainDetached clears the seat index for seats the engine detached
// during the last call (busts, completed unseats). Runs outside the
// table lock to keep lock order one-way.
func (c *Controller) drainDetached(t *table) {
	t.mu.Lock()
	ids := t.detached
	t.detached = nil
	t.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	for _, id := range ids {
		if c.seats[id] == t.id {
			delete(c.seats, id)
		}
	}
	c.mu.Unlock()
}

// notifyQuarantine publishes to the operator channel without blocking.
func (c *Controller) notifyQuarantine(gameID, reason string) {
	notice := QuarantineNotice{GameID: gameID, Reason: reason, Time: c.clock.Now()}
	select {
	case c.operator <- notice:
	default:
		c.logger.Warn("operator channel full, dropping quarantine notice", "game", gameID)
	}
}
