package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/EL-MTN/PokaiEngine-sub002/internal/deck"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/evaluator"
	"github.com/EL-MTN/PokaiEngine-sub002/internal/randutil"
)

var (
	// ErrGameRunning rejects seat changes while a hand is live.
	ErrGameRunning = errors.New("hand in progress")
	// ErrNotEnoughPlayers rejects a hand start below two funded seats.
	ErrNotEnoughPlayers = errors.New("need at least 2 players with chips")
	// ErrTableFull rejects joins beyond the configured maximum.
	ErrTableFull = errors.New("table is full")
	// ErrUnknownSeat is returned for a seat id not at the table.
	ErrUnknownSeat = errors.New("unknown seat")
	// ErrDuplicateSeat rejects a second join with the same id.
	ErrDuplicateSeat = errors.New("seat already at table")
	// ErrNotToAct is returned by ForceTimeout when the target seat is
	// no longer due to act; a late timer simply lost the race.
	ErrNotToAct = errors.New("seat is not to act")

	// ErrEngineCorrupt is fatal: an internal invariant broke and the
	// table must be quarantined.
	ErrEngineCorrupt = errors.New("engine state corrupt")
)

// Engine runs one table's hand lifecycle: dealing, betting rounds,
// side pots, showdown, distribution and elimination. It owns its Table
// and Deck exclusively and emits cloned events through a single sink.
//
// The engine is not goroutine-safe; the controller serializes all
// calls under the per-table lock.
type Engine struct {
	cfg    Config
	table  *Table
	deck   *deck.Deck
	rng    *rand.Rand
	seed   int64
	logger *log.Logger
	clock  quartz.Clock

	sink func(Event)

	// fatal latches the first invariant violation; every later
	// mutating call returns it unchanged.
	fatal error

	handChipTotal int
	turnStartedAt time.Time

	// turnSerial increments on every action-pointer assignment, so a
	// seat that closes one street and opens the next reads as two
	// distinct turns.
	turnSerial uint64
}

// NewEngine creates an engine for the given table configuration. The
// config must already be validated. A nil seed draws one from OS
// entropy; either way the seed used is retained for replay metadata.
func NewEngine(gameID string, cfg Config, logger *log.Logger, clock quartz.Clock) *Engine {
	seed := randutil.NewSeed()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	rng := randutil.New(seed)
	return &Engine{
		cfg:    cfg,
		table:  NewTable(gameID, cfg.SmallBlind, cfg.BigBlind),
		deck:   deck.New(rng),
		rng:    rng,
		seed:   seed,
		logger: logger.WithPrefix("engine").With("game", gameID),
		clock:  clock,
	}
}

// SetSink installs the single event callback. Events are cloned before
// delivery.
func (e *Engine) SetSink(sink func(Event)) {
	e.sink = sink
}

// GameID returns the table's id.
func (e *Engine) GameID() string { return e.table.GameID }

// Config returns the table configuration.
func (e *Engine) Config() Config { return e.cfg }

// Seed returns the shuffle seed in use.
func (e *Engine) Seed() int64 { return e.seed }

// Phase returns the current phase.
func (e *Engine) Phase() Phase { return e.table.Phase }

// HandNumber returns the current hand number.
func (e *Engine) HandNumber() int { return e.table.HandNumber }

// SeatCount returns the number of seats, including mid-hand leavers
// not yet detached.
func (e *Engine) SeatCount() int { return len(e.table.Seats) }

// ReadySeatCount returns the number of seats able to play a hand.
func (e *Engine) ReadySeatCount() int {
	count := 0
	for _, s := range e.table.Seats {
		if s.Chips > 0 && !s.leaving {
			count++
		}
	}
	return count
}

// ToActSeatID returns the seat currently due to act, or "".
func (e *Engine) ToActSeatID() string {
	if seat := e.table.ToActSeat(); seat != nil {
		return seat.ID
	}
	return ""
}

// TurnSerial identifies the current turn. It changes whenever the
// action pointer is assigned, even when the same seat holds it across
// a street boundary.
func (e *Engine) TurnSerial() uint64 { return e.turnSerial }

// HasSeat reports whether the seat id is at the table.
func (e *Engine) HasSeat(id string) bool {
	seat, _ := e.table.SeatByID(id)
	return seat != nil
}

// Fatal returns the latched fatal error, or nil while healthy.
func (e *Engine) Fatal() error { return e.fatal }

// Snapshot returns a complete unfiltered copy of the table state.
// Callers must project it before sending it anywhere.
func (e *Engine) Snapshot() *Snapshot {
	return e.table.Snapshot()
}

// SnapshotForSeat builds the seat's bot view: the projected snapshot
// plus its legal actions. The caller fills in the turn budget.
func (e *Engine) SnapshotForSeat(seatID string) (*BotView, error) {
	if seat, _ := e.table.SeatByID(seatID); seat == nil {
		return nil, ErrUnknownSeat
	}
	aud := SeatAudience(seatID)
	aud.AtShowdown = e.table.Phase >= Showdown
	return &BotView{
		Snapshot:        e.table.Snapshot().Project(aud),
		PossibleActions: PossibleActions(e.table, seatID),
	}, nil
}

// PossibleActions returns the legal actions for the seat right now.
func (e *Engine) PossibleActions(seatID string) []ValidAction {
	return PossibleActions(e.table, seatID)
}

// AddSeat seats a new player. Rejected while a hand is live.
func (e *Engine) AddSeat(id, name string, chips int) error {
	if e.fatal != nil {
		return e.fatal
	}
	t := e.table
	if t.Phase.InHand() {
		return ErrGameRunning
	}
	if len(t.Seats) >= e.cfg.MaxPlayers {
		return ErrTableFull
	}
	if seat, _ := t.SeatByID(id); seat != nil {
		return ErrDuplicateSeat
	}
	if chips <= 0 {
		return fmt.Errorf("chip stack must be positive, got %d", chips)
	}
	seat := &Seat{ID: id, Name: name, Chips: chips, Position: len(t.Seats)}
	t.Seats = append(t.Seats, seat)
	e.logger.Debug("seat added", "seat", id, "chips", chips)
	e.emit(Event{Type: EventPlayerJoined, SeatID: id, SeatName: name})
	return nil
}

// RemoveSeat detaches a seat. Mid-hand the seat is folded immediately
// and detached when the hand completes, so a leaver cannot stall play.
func (e *Engine) RemoveSeat(id string) error {
	if e.fatal != nil {
		return e.fatal
	}
	t := e.table
	seat, idx := t.SeatByID(id)
	if seat == nil {
		return ErrUnknownSeat
	}
	if t.Phase.InHand() {
		if seat.leaving {
			return nil
		}
		seat.leaving = true
		e.emit(Event{Type: EventPlayerLeft, SeatID: id, SeatName: seat.Name, Reason: "left mid-hand"})
		if seat.Folded {
			return nil
		}
		return e.foldOut(idx)
	}
	t.removeSeatAt(idx)
	e.emit(Event{Type: EventPlayerLeft, SeatID: id, SeatName: seat.Name})
	return nil
}

// StartHand begins a new hand: advance the button, shuffle, deal hole
// cards in positional order, post blinds and hand the action to the
// first seat. Heads-up the small blind is the button and acts first
// preflop.
func (e *Engine) StartHand() error {
	if e.fatal != nil {
		return e.fatal
	}
	t := e.table
	if t.Phase.InHand() {
		return ErrGameRunning
	}
	if e.ReadySeatCount() < 2 {
		return ErrNotEnoughPlayers
	}

	t.HandNumber++
	t.Phase = PreFlop
	t.Board = t.Board[:0]
	t.Pots = nil
	for _, s := range t.Seats {
		s.resetForHand()
	}
	if t.HandNumber > 1 {
		t.Button = (t.Button + 1) % len(t.Seats)
	}

	n := len(t.Seats)
	if n == 2 {
		t.SBPos = t.Button
		t.BBPos = (t.Button + 1) % n
	} else {
		t.SBPos = (t.Button + 1) % n
		t.BBPos = (t.Button + 2) % n
	}

	e.handChipTotal = 0
	for _, s := range t.Seats {
		e.handChipTotal += s.Chips
	}

	e.deck.Reset()
	e.deck.Shuffle()

	pairs, err := e.deck.DealHoleCards(n)
	if err != nil {
		return e.fail(err)
	}
	holeCards := make(map[string][]deck.Card, n)
	for i := 0; i < n; i++ {
		seat := t.Seats[(t.SBPos+i)%n]
		seat.HoleCards = []deck.Card{pairs[i][0], pairs[i][1]}
		holeCards[seat.ID] = seat.HoleCards
	}

	chips := make(map[string]int, n)
	for _, s := range t.Seats {
		chips[s.ID] = s.Chips
	}
	e.emit(Event{Type: EventHandStarted, Button: t.Button, ChipCounts: chips})
	e.emit(Event{Type: EventHoleCardsDealt, HoleCards: holeCards})

	sb, bb := t.Seats[t.SBPos], t.Seats[t.BBPos]
	sb.put(min(t.SmallBlind, sb.Chips))
	bb.put(min(t.BigBlind, bb.Chips))
	t.CurrentBet = t.BigBlind
	t.MinRaise = t.BigBlind
	t.LastAggressor = -1

	e.emit(Event{
		Type: EventBlindsPosted,
		Blinds: &PostedBlinds{
			SmallBlindSeat:   sb.ID,
			SmallBlindAmount: sb.CurrentBet,
			BigBlindSeat:     bb.ID,
			BigBlindAmount:   bb.CurrentBet,
		},
		PotTotal: t.PotTotal(),
	})

	first := t.SBPos
	if n > 2 {
		first = (t.BBPos + 1) % n
	}
	if idx := t.nextActive(first); idx != -1 {
		e.setToAct(idx)
		if !roundComplete(t) {
			return nil
		}
	}
	// Blinds left nobody able to act, run the board out.
	return e.advancePhase()
}

// ProcessAction validates and applies a seat's action, then settles
// the table: award an uncontested pot, advance the street, or pass
// the action on. Invalid actions change nothing.
func (e *Engine) ProcessAction(a Action) error {
	if e.fatal != nil {
		return e.fatal
	}
	t := e.table
	if err := ValidateAction(t, a); err != nil {
		return err
	}
	seat := t.Seats[t.ToAct]
	decision := e.decisionContext(seat)
	taken := e.apply(seat, a)
	seat.HasActed = true
	e.logger.Debug("action", "seat", seat.ID, "type", taken.Type, "amount", taken.Amount)
	e.emit(Event{
		Type:     EventActionTaken,
		SeatID:   seat.ID,
		Action:   &taken,
		PotTotal: t.PotTotal(),
		Decision: decision,
	})
	return e.settle(true)
}

// ForceTimeout is the turn-timer path: emit player_timeout, then act
// for the seat with check if free, fold otherwise.
func (e *Engine) ForceTimeout(seatID string) error {
	if e.fatal != nil {
		return e.fatal
	}
	t := e.table
	if seat := t.ToActSeat(); seat == nil || seat.ID != seatID {
		return ErrNotToAct
	}
	e.emit(Event{Type: EventPlayerTimeout, SeatID: seatID})
	return e.ProcessAction(ForcedAction(t, seatID))
}

// apply mutates the seat and round state for a validated action and
// reports what actually happened after clamping.
func (e *Engine) apply(seat *Seat, a Action) TakenAction {
	t := e.table
	switch a.Type {
	case ActionFold:
		seat.Folded = true
		return TakenAction{Type: ActionFold}

	case ActionCheck:
		return TakenAction{Type: ActionCheck}

	case ActionCall:
		toCall := min(t.CurrentBet-seat.CurrentBet, seat.Chips)
		seat.put(toCall)
		return TakenAction{Type: ActionCall, Amount: toCall, AllIn: seat.AllIn}

	case ActionBet:
		amount := min(a.Amount, seat.Chips)
		seat.put(amount)
		t.CurrentBet = amount
		t.MinRaise = amount
		e.reopen(seat)
		return TakenAction{Type: ActionBet, Amount: amount, AllIn: seat.AllIn}

	case ActionRaise:
		raiseTo := min(a.Amount, seat.CurrentBet+seat.Chips)
		increase := raiseTo - t.CurrentBet
		seat.put(raiseTo - seat.CurrentBet)
		if increase >= t.MinRaise {
			t.MinRaise = increase
			e.reopen(seat)
		}
		t.CurrentBet = raiseTo
		return TakenAction{Type: ActionRaise, Amount: raiseTo, AllIn: seat.AllIn}

	default: // ActionAllIn
		raiseTo := seat.CurrentBet + seat.Chips
		seat.put(seat.Chips)
		if raiseTo > t.CurrentBet {
			if raiseTo-t.CurrentBet >= t.MinRaise {
				t.MinRaise = raiseTo - t.CurrentBet
				e.reopen(seat)
			}
			t.CurrentBet = raiseTo
		}
		return TakenAction{Type: ActionAllIn, Amount: raiseTo, AllIn: true}
	}
}

// reopen records a full raise: every other seat regains the right to
// act (and to re-raise). Short all-in raises never come through here.
func (e *Engine) reopen(raiser *Seat) {
	for _, s := range e.table.Seats {
		if s != raiser {
			s.HasActed = false
		}
	}
	e.table.LastAggressor = raiser.Position
}

// foldOut folds a seat outside its turn (leave, disconnect) and
// settles without advancing the action pointer off a different seat.
func (e *Engine) foldOut(idx int) error {
	t := e.table
	seat := t.Seats[idx]
	seat.Folded = true
	seat.HasActed = true
	if t.LastAggressor == idx {
		t.LastAggressor = -1
	}
	e.emit(Event{
		Type:   EventActionTaken,
		SeatID: seat.ID,
		Action: &TakenAction{Type: ActionFold},
	})
	return e.settle(t.ToAct == idx)
}

// settle inspects the table after a mutation: one seat left wins
// uncontested, a closed round advances the street, otherwise the
// action moves to the next seat when advance is set.
func (e *Engine) settle(advance bool) error {
	t := e.table
	if t.remainingInHand() <= 1 {
		return e.finishUncontested()
	}
	if roundComplete(t) {
		return e.advancePhase()
	}
	if advance {
		next := t.nextActive(t.ToAct + 1)
		if next == -1 {
			return e.fail(fmt.Errorf("%w: open round with no seat to act", ErrEngineCorrupt))
		}
		e.setToAct(next)
	}
	return nil
}

// advancePhase closes the betting round: derive the pots from the
// ledger, clear round state, then burn and deal the next street or
// run the showdown. With nobody left to act the remaining streets are
// run out back to back.
func (e *Engine) advancePhase() error {
	t := e.table
	t.Pots = FormPots(t.Seats)
	t.resetRound()
	t.ToAct = -1

	var (
		eventType EventType
		cards     []deck.Card
		err       error
	)
	switch t.Phase {
	case PreFlop:
		t.Phase = Flop
		eventType = EventFlopDealt
		cards, err = e.deck.DealFlop()
	case Flop:
		t.Phase = Turn
		eventType = EventTurnDealt
		var card deck.Card
		card, err = e.deck.DealTurn()
		cards = []deck.Card{card}
	case Turn:
		t.Phase = River
		eventType = EventRiverDealt
		var card deck.Card
		card, err = e.deck.DealRiver()
		cards = []deck.Card{card}
	case River:
		return e.showdown()
	default:
		return e.fail(fmt.Errorf("%w: advance from phase %s", ErrEngineCorrupt, t.Phase))
	}
	if err != nil {
		return e.fail(err)
	}
	if err := e.deck.Validate(); err != nil {
		return e.fail(err)
	}

	t.Board = append(t.Board, cards...)
	e.emit(Event{Type: eventType, Cards: cards, PotTotal: t.PotTotal()})

	if idx := t.nextActive((t.Button + 1) % len(t.Seats)); idx != -1 {
		actable := 0
		for _, s := range t.Seats {
			if s.Active() {
				actable++
			}
		}
		if actable > 1 {
			e.setToAct(idx)
			return nil
		}
	}
	return e.advancePhase()
}

// showdown evaluates every remaining hand, distributes the pots and
// completes the hand.
func (e *Engine) showdown() error {
	t := e.table
	t.Phase = Showdown
	t.ToAct = -1

	strengths := make(map[string]evaluator.HandStrength)
	var shows []ShowdownHand
	for _, s := range t.Seats {
		if !s.InHand() {
			continue
		}
		hs, err := evaluator.Evaluate(append(append([]deck.Card(nil), s.HoleCards...), t.Board...))
		if err != nil {
			return e.fail(fmt.Errorf("%w: %v", ErrEngineCorrupt, err))
		}
		strengths[s.ID] = hs
		shows = append(shows, ShowdownHand{SeatID: s.ID, HoleCards: s.HoleCards, Description: hs.Description})
	}

	payouts, winners, err := Distribute(t.Pots, strengths, t.Seats, t.Button)
	if err != nil {
		return e.fail(err)
	}
	for id, amount := range payouts {
		seat, _ := t.SeatByID(id)
		seat.Chips += amount
	}
	e.emit(Event{Type: EventShowdownComplete, Showdown: shows, Winners: winners, PotTotal: t.PotTotal()})
	return e.completeHand(winners)
}

// finishUncontested awards everything to the last seat in the hand.
// No showdown event is emitted on this path; hand_complete carries the
// winner.
func (e *Engine) finishUncontested() error {
	t := e.table
	t.Pots = FormPots(t.Seats)
	t.ToAct = -1

	var winner *Seat
	for _, s := range t.Seats {
		if s.InHand() {
			winner = s
			break
		}
	}
	if winner == nil {
		return e.fail(fmt.Errorf("%w: no seat left in hand", ErrEngineCorrupt))
	}
	total := 0
	for _, pot := range t.Pots {
		total += pot.Amount
	}
	winner.Chips += total
	return e.completeHand([]Winner{{SeatID: winner.ID, Amount: total}})
}

// completeHand closes the books: verify chip conservation, emit the
// terminal hand_complete, then detach busted and departed seats.
func (e *Engine) completeHand(winners []Winner) error {
	t := e.table
	t.Phase = HandComplete
	for _, s := range t.Seats {
		s.CurrentBet = 0
		s.TotalBet = 0
	}

	total := 0
	for _, s := range t.Seats {
		total += s.Chips
	}
	if total != e.handChipTotal {
		return e.fail(fmt.Errorf("%w: %d chips at hand end, %d at start", ErrEngineCorrupt, total, e.handChipTotal))
	}

	chips := make(map[string]int, len(t.Seats))
	for _, s := range t.Seats {
		chips[s.ID] = s.Chips
	}
	e.emit(Event{Type: EventHandComplete, Winners: winners, ChipCounts: chips})

	for i := len(t.Seats) - 1; i >= 0; i-- {
		s := t.Seats[i]
		switch {
		case s.Chips == 0:
			t.removeSeatAt(i)
			e.emit(Event{Type: EventPlayerLeft, SeatID: s.ID, SeatName: s.Name, Reason: "busted"})
		case s.leaving:
			t.removeSeatAt(i)
		}
	}
	return nil
}

// decisionContext captures the acting seat's situation before the
// action applies, for replay annotation.
func (e *Engine) decisionContext(seat *Seat) *DecisionContext {
	t := e.table
	ctx := &DecisionContext{
		PossibleActions: PossibleActions(t, seat.ID),
		TimeToDecide:    e.clock.Now().Sub(e.turnStartedAt),
	}
	if toCall := t.CurrentBet - seat.CurrentBet; toCall > 0 {
		ctx.PotOdds = float64(toCall) / float64(t.PotTotal()+toCall)
	}
	effective := 0
	for _, s := range t.Seats {
		if s != seat && s.InHand() && s.Chips > effective {
			effective = s.Chips
		}
	}
	ctx.EffectiveStack = min(seat.Chips, effective)
	return ctx
}

func (e *Engine) setToAct(idx int) {
	e.table.ToAct = idx
	e.turnSerial++
	e.turnStartedAt = e.clock.Now()
}

// fail latches a fatal error, quarantines the table and tells every
// subscriber. The table accepts no further mutations.
func (e *Engine) fail(err error) error {
	if e.fatal != nil {
		return e.fatal
	}
	e.fatal = err
	e.table.ToAct = -1
	e.logger.Error("table quarantined", "error", err)
	e.emit(Event{Type: EventTableQuarantined, Reason: err.Error()})
	return err
}

// emit stamps and clones the event and hands it to the sink.
func (e *Engine) emit(ev Event) {
	ev.Timestamp = e.clock.Now()
	ev.HandNumber = e.table.HandNumber
	ev.Phase = e.table.Phase
	if e.sink != nil {
		e.sink(ev.Clone())
	}
}
