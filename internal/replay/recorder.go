package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// ErrNoReplay is returned when no recording exists for a game id.
var ErrNoReplay = errors.New("no replay for game")

// Options configures a Recorder.
type Options struct {
	Logger *log.Logger
	Clock  quartz.Clock

	// Store receives completed replays on a background worker.
	// Optional; failures are logged and retried, never surfaced to a
	// table.
	Store Store

	// CheckpointInterval is the event count between checkpoints.
	CheckpointInterval int

	// MaxReplaysInMemory caps retained completed replays; the oldest
	// are evicted first.
	MaxReplaysInMemory int

	// SaveRetries and SaveBackoff shape the background save loop.
	SaveRetries int
	SaveBackoff time.Duration
}

// Recorder keeps the in-flight and recently completed replays of every
// table. Recording appends are cheap and synchronous; persistence
// happens off the table's lock on background goroutines.
type Recorder struct {
	logger             *log.Logger
	clock              quartz.Clock
	store              Store
	checkpointInterval int
	maxInMemory        int
	saveRetries        int
	saveBackoff        time.Duration

	mu        sync.Mutex
	active    map[string]*Replay
	completed map[string]*Replay
	order     []string
}

// NewRecorder creates a recorder.
func NewRecorder(opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.CheckpointInterval == 0 {
		opts.CheckpointInterval = 50
	}
	if opts.MaxReplaysInMemory == 0 {
		opts.MaxReplaysInMemory = 100
	}
	if opts.SaveRetries == 0 {
		opts.SaveRetries = 3
	}
	if opts.SaveBackoff == 0 {
		opts.SaveBackoff = time.Second
	}
	return &Recorder{
		logger:             opts.Logger.WithPrefix("replay"),
		clock:              opts.Clock,
		store:              opts.Store,
		checkpointInterval: opts.CheckpointInterval,
		maxInMemory:        opts.MaxReplaysInMemory,
		saveRetries:        opts.SaveRetries,
		saveBackoff:        opts.SaveBackoff,
		active:             make(map[string]*Replay),
		completed:          make(map[string]*Replay),
	}
}

// StartRecording opens a recording for the table and writes the
// game_started pseudo-event.
func (r *Recorder) StartRecording(gameID string, cfg game.Config, initial *game.Snapshot, seed int64) {
	now := r.clock.Now()
	rep := &Replay{
		GameID:      gameID,
		Config:      cfg,
		Seed:        seed,
		PlayerNames: make(map[string]string),
		StartedAt:   now,
		Initial:     initial.Project(game.ReplayAudience(false)),
		lastEventAt: now,
	}
	rep.append(AnnotatedEvent{
		Event: game.Event{Type: EventGameStarted, Timestamp: now},
	})

	r.mu.Lock()
	r.active[gameID] = rep
	r.mu.Unlock()
}

// RecordEvent appends one engine event with its pre- and post-state
// snapshots. Inputs are cloned and pushed through the replay
// visibility filter; controller-level turn notices are not recorded.
func (r *Recorder) RecordEvent(gameID string, ev game.Event, before, after *game.Snapshot) {
	if ev.Type == game.EventTurnStarted || ev.Type == game.EventTurnWarning {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.active[gameID]
	if !ok {
		return
	}

	atShowdown := ev.Phase >= game.Showdown
	recorded := ev.Project(game.ReplayAudience(atShowdown))
	decision := recorded.Decision
	recorded.Decision = nil

	ae := AnnotatedEvent{
		Event:     recorded,
		Decision:  decision,
		SincePrev: ev.Timestamp.Sub(rep.lastEventAt),
	}
	if before != nil {
		ae.Before = before.Project(game.ReplayAudience(before.Phase >= game.Showdown))
	}
	if after != nil {
		ae.After = after.Project(game.ReplayAudience(after.Phase >= game.Showdown))
	}
	rep.append(ae)
	rep.lastEventAt = ev.Timestamp

	switch ev.Type {
	case game.EventPlayerJoined:
		rep.PlayerNames[ev.SeatID] = ev.SeatName
	case game.EventHandStarted:
		rep.Metadata.HandCount++
		rep.handStartAt = ev.Timestamp
	case game.EventActionTaken:
		rep.Metadata.TotalActions++
	case game.EventHandComplete:
		if !rep.handStartAt.IsZero() {
			rep.handDuration += ev.Timestamp.Sub(rep.handStartAt)
		}
		for _, w := range ev.Winners {
			rep.noteWinner(w.SeatID)
		}
	}

	if ae.After != nil && int(ae.Sequence)%r.checkpointInterval == 0 {
		rep.Checkpoints = append(rep.Checkpoints, Checkpoint{
			Sequence: ae.Sequence,
			State:    ae.After,
		})
	}
}

// EndRecording closes the recording: game_ended, aggregate metadata,
// final chip counts. The finished replay moves to the completed set
// and is handed to the store on a background worker.
func (r *Recorder) EndRecording(gameID string, final *game.Snapshot) {
	now := r.clock.Now()

	r.mu.Lock()
	rep, ok := r.active[gameID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.active, gameID)

	rep.append(AnnotatedEvent{
		Event:     game.Event{Type: EventGameEnded, Timestamp: now},
		SincePrev: now.Sub(rep.lastEventAt),
	})
	rep.EndedAt = now
	rep.complete = true
	rep.Metadata.Duration = now.Sub(rep.StartedAt)
	if rep.Metadata.HandCount > 0 {
		rep.Metadata.AvgHandDuration = rep.handDuration / time.Duration(rep.Metadata.HandCount)
	}
	if final != nil {
		rep.Metadata.FinalChips = make(map[string]int, len(final.Seats))
		for _, seat := range final.Seats {
			rep.Metadata.FinalChips[seat.ID] = seat.Chips
		}
	}

	r.completed[gameID] = rep
	r.order = append(r.order, gameID)
	for len(r.order) > r.maxInMemory {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.completed, oldest)
	}
	r.mu.Unlock()

	if r.store != nil {
		go r.save(rep)
	}
}

// Get returns the replay for a game, active or completed.
func (r *Recorder) Get(gameID string) (*Replay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep, ok := r.active[gameID]; ok {
		return rep, nil
	}
	if rep, ok := r.completed[gameID]; ok {
		return rep, nil
	}
	return nil, ErrNoReplay
}

// save pushes a completed replay to the store, retrying with backoff.
// Storage is best-effort: exhausted retries only log.
func (r *Recorder) save(rep *Replay) {
	var err error
	for attempt := 0; attempt <= r.saveRetries; attempt++ {
		if attempt > 0 {
			r.sleep(r.saveBackoff * time.Duration(1<<(attempt-1)))
		}
		if err = r.store.Save(context.Background(), rep); err == nil {
			return
		}
		r.logger.Warn("replay save failed", "game", rep.GameID, "attempt", attempt+1, "error", err)
	}
	r.logger.Error("replay save abandoned", "game", rep.GameID, "error", err)
}

func (r *Recorder) sleep(d time.Duration) {
	done := make(chan struct{})
	timer := r.clock.AfterFunc(d, func() { close(done) })
	defer timer.Stop()
	<-done
}

func (rep *Replay) append(ae AnnotatedEvent) {
	rep.nextSequence++
	ae.Sequence = rep.nextSequence
	rep.Events = append(rep.Events, ae)
}

func (rep *Replay) noteWinner(seatID string) {
	for _, w := range rep.Metadata.Winners {
		if w == seatID {
			return
		}
	}
	rep.Metadata.Winners = append(rep.Metadata.Winners, seatID)
}
