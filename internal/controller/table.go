package controller

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// SubscriberHandle identifies one event subscriber for removal.
// Handles are opaque; callbacks are never compared by identity.
type SubscriberHandle int

// warningFraction of the turn budget elapses before the warning fires.
const warningFraction = 0.8

// table wraps one engine with its lock, subscribers and timers. All
// engine access goes through withEngine so every mutation is followed
// by the bookkeeping in afterMutation.
type table struct {
	c         *Controller
	id        string
	cfg       game.Config
	creatorID string

	mu      sync.Mutex
	engine  *game.Engine
	subs    map[SubscriberHandle]func(game.Event)
	nextSub SubscriberHandle

	pendingUnseats []string

	// detached accumulates seats the engine dropped; the controller
	// drains it outside the table lock to update its seat index.
	detached []string

	// turnEpoch invalidates stale timer callbacks: a timer that fires
	// after the turn moved on sees a new epoch and no-ops.
	turnEpoch    uint64
	turnSeat     string
	turnSerial   uint64
	turnDeadline time.Time

	// lastSnap is the state after the previously recorded event; it
	// becomes the before snapshot of the next one.
	lastSnap *game.Snapshot

	warnTimer    *quartz.Timer
	turnTimer    *quartz.Timer
	startTimer   *quartz.Timer
	cleanupTimer *quartz.Timer

	removed     bool
	quarantined bool
}

func newTable(c *Controller, id string, cfg game.Config, creatorID string) *table {
	t := &table{
		c:         c,
		id:        id,
		cfg:       cfg,
		creatorID: creatorID,
		subs:      make(map[SubscriberHandle]func(game.Event)),
	}
	t.engine = game.NewEngine(id, cfg, c.logger, c.clock)
	t.engine.SetSink(t.onEngineEvent)
	t.lastSnap = t.engine.Snapshot()
	return t
}

// withEngine runs fn under the table lock and settles timers and
// scheduling afterwards.
func (t *table) withEngine(fn func(*game.Engine) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed {
		return ErrGameNotFound
	}
	err := fn(t.engine)
	t.afterMutation()
	return err
}

// onEngineEvent is the engine's single sink. It runs under the table
// lock, mid-engine-call: record, fan out, note reactions — but never
// call back into the engine from here.
func (t *table) onEngineEvent(ev game.Event) {
	if t.c.recorder != nil {
		after := t.engine.Snapshot()
		t.c.recorder.RecordEvent(t.id, ev, t.lastSnap, after)
		t.lastSnap = after
	}
	if ev.Type == game.EventPlayerLeft {
		t.detached = append(t.detached, ev.SeatID)
	}
	t.fanout(ev)
}

// fanout delivers a clone to every subscriber in emission order.
func (t *table) fanout(ev game.Event) {
	for _, fn := range t.subs {
		fn(ev.Clone())
	}
}

// afterMutation runs under the table lock after every engine call:
// quarantine handling, queued unseats, hand scheduling, turn timers
// and empty-table cleanup.
func (t *table) afterMutation() {
	if t.removed {
		return
	}

	if err := t.engine.Fatal(); err != nil && !t.quarantined {
		t.quarantined = true
		t.cancelTimers()
		t.c.notifyQuarantine(t.id, err.Error())
		if t.c.recorder != nil {
			t.c.recorder.EndRecording(t.id, t.engine.Snapshot())
		}
		return
	}
	if t.quarantined {
		return
	}

	phase := t.engine.Phase()

	if phase == game.HandComplete && len(t.pendingUnseats) > 0 {
		pending := t.pendingUnseats
		t.pendingUnseats = nil
		for _, seatID := range pending {
			_ = t.engine.RemoveSeat(seatID)
		}
	}

	t.rearmTurnTimer()
	t.scheduleNextHand(phase)

	if t.engine.SeatCount() == 0 && !phase.InHand() {
		t.ensureCleanupTimer()
	} else if t.cleanupTimer != nil {
		t.cleanupTimer.Stop()
		t.cleanupTimer = nil
	}
}

// rearmTurnTimer aligns the warning and timeout timers with the turn
// currently open. The engine's turn serial distinguishes a seat's new
// turn from its old one when the same seat closes a street and opens
// the next. Timer callbacks re-check the epoch under the lock, so a
// timeout racing a voluntary action loses cleanly.
func (t *table) rearmTurnTimer() {
	seatID := t.engine.ToActSeatID()
	serial := t.engine.TurnSerial()
	if seatID == t.turnSeat && serial == t.turnSerial {
		return
	}
	t.turnEpoch++
	t.turnSeat = seatID
	t.turnSerial = serial
	if t.warnTimer != nil {
		t.warnTimer.Stop()
		t.warnTimer = nil
	}
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	if seatID == "" {
		return
	}

	epoch := t.turnEpoch
	limit := t.cfg.TurnTimeLimit
	warnAt := time.Duration(float64(limit) * warningFraction)
	t.turnDeadline = t.c.clock.Now().Add(limit)

	t.fanout(game.Event{
		Type:       game.EventTurnStarted,
		Timestamp:  t.c.clock.Now(),
		HandNumber: t.engine.HandNumber(),
		Phase:      t.engine.Phase(),
		SeatID:     seatID,
		TimeLimit:  limit,
	})

	t.warnTimer = t.c.clock.AfterFunc(warnAt, func() {
		t.fireWarning(epoch)
	})
	t.turnTimer = t.c.clock.AfterFunc(limit, func() {
		t.fireTimeout(epoch)
	})
}

func (t *table) fireWarning(epoch uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed || t.quarantined || epoch != t.turnEpoch || t.turnSeat == "" {
		return
	}
	remaining := t.turnDeadline.Sub(t.c.clock.Now())
	t.fanout(game.Event{
		Type:          game.EventTurnWarning,
		Timestamp:     t.c.clock.Now(),
		HandNumber:    t.engine.HandNumber(),
		Phase:         t.engine.Phase(),
		SeatID:        t.turnSeat,
		TimeRemaining: remaining,
	})
}

func (t *table) fireTimeout(epoch uint64) {
	t.mu.Lock()
	if t.removed || t.quarantined || epoch != t.turnEpoch || t.turnSeat == "" {
		t.mu.Unlock()
		return
	}
	seatID := t.turnSeat
	err := t.engine.ForceTimeout(seatID)
	if err != nil && err != game.ErrNotToAct {
		t.c.logger.Error("forced timeout failed", "game", t.id, "seat", seatID, "error", err)
	}
	t.afterMutation()
	t.mu.Unlock()
	t.c.drainDetached(t)
}

// scheduleNextHand arms the hand-start delay after a completed hand,
// and evaluates the auto-start policy for a table that has not dealt
// yet.
func (t *table) scheduleNextHand(phase game.Phase) {
	if t.startTimer != nil {
		return
	}
	switch {
	case phase == game.HandComplete && t.engine.ReadySeatCount() >= 2:
	case phase == game.WaitingForPlayers &&
		t.cfg.Start.Mode == game.StartMinPlayers &&
		t.engine.ReadySeatCount() >= t.cfg.Start.MinPlayers:
	default:
		return
	}
	t.startTimer = t.c.clock.AfterFunc(t.cfg.HandStartDelay, t.fireHandStart)
}

func (t *table) fireHandStart() {
	t.mu.Lock()
	t.startTimer = nil
	if t.removed || t.quarantined || t.engine.Phase().InHand() {
		t.mu.Unlock()
		return
	}
	if t.engine.ReadySeatCount() < 2 {
		t.mu.Unlock()
		return
	}
	if err := t.engine.StartHand(); err != nil {
		t.c.logger.Error("hand start failed", "game", t.id, "error", err)
	}
	t.afterMutation()
	t.mu.Unlock()
	t.c.drainDetached(t)
}

// ensureCleanupTimer arms the empty-table removal timer once.
func (t *table) ensureCleanupTimer() {
	if t.cleanupTimer != nil || t.removed {
		return
	}
	t.cleanupTimer = t.c.clock.AfterFunc(t.c.cleanupDelay, func() {
		t.mu.Lock()
		empty := !t.removed && t.engine.SeatCount() == 0
		t.cleanupTimer = nil
		t.mu.Unlock()
		if empty {
			_ = t.c.RemoveGame(t.id)
		}
	})
}

func (t *table) cancelTimers() {
	for _, timer := range []*quartz.Timer{t.warnTimer, t.turnTimer, t.startTimer, t.cleanupTimer} {
		if timer != nil {
			timer.Stop()
		}
	}
	t.warnTimer, t.turnTimer, t.startTimer, t.cleanupTimer = nil, nil, nil, nil
	t.turnSeat = ""
}
