// Package replay records per-table event streams with enough metadata
// and periodic checkpoints to reproduce any table state, and exports
// them as plain or gzip-compressed JSON.
package replay

import (
	"time"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/game"
)

// Pseudo-events that frame a recording. They never come from an
// engine.
const (
	EventGameStarted game.EventType = "game_started"
	EventGameEnded   game.EventType = "game_ended"
)

// AnnotatedEvent is one recorded event: the replay-projected event,
// its strictly monotonic sequence id, the pre- and post-event states,
// the decision context when the event was an action, and the time
// since the previous event.
type AnnotatedEvent struct {
	Sequence  uint64                `json:"sequence"`
	Event     game.Event            `json:"event"`
	Before    *game.Snapshot        `json:"before,omitempty"`
	After     *game.Snapshot        `json:"after,omitempty"`
	Decision  *game.DecisionContext `json:"decision,omitempty"`
	SincePrev time.Duration         `json:"sincePrev,omitempty"`
}

// Checkpoint is a full post-state snapshot taken every
// checkpointInterval events, so replaying to any point never walks
// more than one interval of events.
type Checkpoint struct {
	Sequence uint64         `json:"sequence"`
	State    *game.Snapshot `json:"state"`
}

// Metadata aggregates the recording.
type Metadata struct {
	HandCount       int            `json:"handCount"`
	TotalActions    int            `json:"totalActions"`
	Duration        time.Duration  `json:"duration"`
	AvgHandDuration time.Duration  `json:"avgHandDuration"`
	FinalChips      map[string]int `json:"finalChips,omitempty"`
	Winners         []string       `json:"winners,omitempty"`
}

// Replay is the persisted envelope of one table's recording. Every
// snapshot and event inside has passed the replay visibility filter:
// hole cards appear only through showdown reveals.
type Replay struct {
	GameID      string            `json:"gameId"`
	Config      game.Config       `json:"config"`
	Seed        int64             `json:"seed"`
	PlayerNames map[string]string `json:"playerNames"`
	StartedAt   time.Time         `json:"startedAt"`
	EndedAt     time.Time         `json:"endedAt,omitempty"`
	Initial     *game.Snapshot    `json:"initial"`
	Events      []AnnotatedEvent  `json:"events"`
	Checkpoints []Checkpoint      `json:"checkpoints,omitempty"`
	Metadata    Metadata          `json:"metadata"`

	// Recording state, not persisted.
	lastEventAt  time.Time
	handStartAt  time.Time
	handDuration time.Duration
	nextSequence uint64
	complete     bool
}
