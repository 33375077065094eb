package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/session"
)

var (
	ErrNoSession     = errors.New("no active session")
	ErrSessionActive = errors.New("a session is already in progress")
	ErrUnknownAction = errors.New("unknown action")
	ErrStopped       = errors.New("orchestrator stopped")
)

// SnapshotStore persists session snapshots for crash recovery.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.SessionSnapshot) error
	LoadLatestSnapshot(ctx context.Context) (models.SessionSnapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID uuid.UUID) error
}

// Notifier receives session events. Implementations may be slow; the
// orchestrator never calls them from the clock loop.
type Notifier interface {
	Notify(ctx context.Context, ev events.Event) error
}

// HistorySink stores the record of a finalized session.
type HistorySink interface {
	RecordHistory(ctx context.Context, rec models.HistoryRecord) error
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	TickInterval      time.Duration
	PersistEveryTicks int
	SaveTimeout       time.Duration
	EventBuffer       int
	SubscriberBuffer  int
}

const (
	defaultTickInterval      = time.Second
	defaultPersistEveryTicks = 10
	defaultSaveTimeout       = 5 * time.Second
	defaultEventBuffer       = 64
	defaultSubscriberBuffer  = 8
)

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.PersistEveryTicks <= 0 {
		c.PersistEveryTicks = defaultPersistEveryTicks
	}
	if c.SaveTimeout <= 0 {
		c.SaveTimeout = defaultSaveTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = defaultEventBuffer
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = defaultSubscriberBuffer
	}
	return c
}

// Update is broadcast to subscribers after every state change. View is nil
// when no session is loaded.
type Update struct {
	Version uint64        `json:"version"`
	View    *session.View `json:"view"`
}

// Outcome is the reply to a control action.
type Outcome struct {
	Result models.Result `json:"result"`
	View   session.View  `json:"view"`
}

type request struct {
	fn   func()
	done chan struct{}
}

// Orchestrator owns the one live session. All reads and writes go through a
// single loop goroutine, which is also the only place the clock ticks.
type Orchestrator struct {
	store    SnapshotStore
	notifier Notifier
	history  HistorySink
	clock    clockwork.Clock
	log      zerolog.Logger
	cfg      Config

	inbox    chan request
	eventCh  chan events.Event
	persists *persistQueue
	stopped  chan struct{}

	// owned by the loop goroutine
	session     *session.Session
	ticker      clockwork.Ticker
	sinceSave   int
	subscribers map[int]chan Update
	nextSubID   int
}

// New creates an orchestrator. A nil notifier or history sink discards what
// it would have received.
func New(store SnapshotStore, notifier Notifier, history HistorySink, clock clockwork.Clock, logger zerolog.Logger, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if history == nil {
		history = NopHistorySink{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		store:       store,
		notifier:    notifier,
		history:     history,
		clock:       clock,
		log:         logger.With().Str("component", "orchestrator").Logger(),
		cfg:         cfg,
		inbox:       make(chan request),
		eventCh:     make(chan events.Event, cfg.EventBuffer),
		persists:    newPersistQueue(),
		stopped:     make(chan struct{}),
		subscribers: make(map[int]chan Update),
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case o.inbox <- req:
	case <-o.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-o.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartSession begins a new paused session from tmpl. A finalized session is
// replaced; a live one is not.
func (o *Orchestrator) StartSession(ctx context.Context, tmpl models.Template) (session.View, error) {
	var (
		view session.View
		err  error
	)
	callErr := o.do(ctx, func() {
		if o.session != nil && !o.session.Finalized() {
			err = ErrSessionActive
			return
		}
		var s *session.Session
		s, err = session.New(uuid.New(), tmpl, o.clock.Now())
		if err != nil {
			return
		}
		o.stopTicker()
		o.session = s
		o.log.Info().
			Str("session_id", s.ID().String()).
			Str("template", tmpl.Name).
			Int("levels", len(tmpl.Levels)).
			Msg("session started")

		o.emit([]events.Signal{{
			Type: events.EventTypeSessionStarted,
			Payload: events.SessionStartedPayload{
				TemplateID:   tmpl.ID,
				TemplateName: tmpl.Name,
				TotalLevels:  len(tmpl.Levels),
				StartedAt:    s.Started(),
			},
		}})
		o.persist()
		o.broadcast()
		view = s.View()
	})
	if callErr != nil {
		return session.View{}, callErr
	}
	return view, err
}

// Do applies a control action to the live session.
func (o *Orchestrator) Do(ctx context.Context, action Action) (Outcome, error) {
	var (
		out Outcome
		err error
	)
	callErr := o.do(ctx, func() {
		if o.session == nil {
			err = ErrNoSession
			return
		}
		res, ok := action.apply(o.session)
		if !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownAction, action)
			return
		}
		if res.OK {
			o.afterAction(action)
		} else {
			o.log.Debug().Str("action", string(action)).Str("reason", res.Reason).Msg("action rejected")
		}
		out = Outcome{Result: res, View: o.session.View()}
	})
	if callErr != nil {
		return Outcome{}, callErr
	}
	return out, err
}

func (o *Orchestrator) afterAction(action Action) {
	state := o.session.ClockState()
	payload := events.ClockPayload{ElapsedSeconds: state.ElapsedSeconds, Level: state.CurrentLevelIndex + 1}

	switch action {
	case ActionPlay:
		o.startTicker()
		o.emit([]events.Signal{{Type: events.EventTypeClockStarted, Payload: payload}})
	case ActionPause:
		o.stopTicker()
		o.emit([]events.Signal{{Type: events.EventTypeClockPaused, Payload: payload}})
	}
	o.log.Info().
		Str("session_id", o.session.ID().String()).
		Str("action", string(action)).
		Uint64("version", o.session.Version()).
		Msg("action applied")
	o.persist()
	o.broadcast()
}

// Finalize ends the live session and hands its record to the history sink.
// The record is returned even when the sink fails.
func (o *Orchestrator) Finalize(ctx context.Context) (models.HistoryRecord, models.Result, error) {
	var (
		rec models.HistoryRecord
		res models.Result
		err error
	)
	callErr := o.do(ctx, func() {
		if o.session == nil {
			err = ErrNoSession
			return
		}
		rec, res = o.session.Finalize(o.clock.Now())
		if !res.OK {
			return
		}
		o.stopTicker()
		o.emit([]events.Signal{{
			Type: events.EventTypeSessionFinalized,
			Payload: events.SessionFinalizedPayload{
				HistoryID:  rec.ID,
				FinalLevel: rec.FinalLevel,
				RealPot:    rec.Pot.RealPot,
			},
		}})
		o.persist()
		o.broadcast()
	})
	if callErr != nil {
		return models.HistoryRecord{}, models.Result{}, callErr
	}
	if err != nil || !res.OK {
		return rec, res, err
	}

	o.log.Info().
		Str("session_id", rec.SessionID.String()).
		Str("history_id", rec.ID.String()).
		Int("final_level", rec.FinalLevel).
		Int64("real_pot", rec.Pot.RealPot).
		Msg("session finalized")
	if err := o.history.RecordHistory(ctx, rec); err != nil {
		return rec, res, fmt.Errorf("failed to record history: %w", err)
	}
	return rec, res, nil
}

// Discard drops the live session without recording history.
func (o *Orchestrator) Discard(ctx context.Context) error {
	var err error
	callErr := o.do(ctx, func() {
		if o.session == nil {
			err = ErrNoSession
			return
		}
		o.stopTicker()
		o.enqueuePersist(persistJob{discard: true, snapshot: o.session.Snapshot(o.clock.Now())})
		o.log.Info().Str("session_id", o.session.ID().String()).Msg("session discarded")
		o.session = nil
		o.sinceSave = 0
		o.broadcast()
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// View returns the read model of the live session.
func (o *Orchestrator) View(ctx context.Context) (session.View, error) {
	var (
		view session.View
		err  error
	)
	callErr := o.do(ctx, func() {
		if o.session == nil {
			err = ErrNoSession
			return
		}
		view = o.session.View()
	})
	if callErr != nil {
		return session.View{}, callErr
	}
	return view, err
}

// Recover loads the most recent snapshot from the store. A restored session
// always comes back paused. Missing, malformed or finalized snapshots leave
// the orchestrator without a session.
func (o *Orchestrator) Recover(ctx context.Context) (bool, error) {
	if o.store == nil {
		return false, nil
	}
	snap, err := o.store.LoadLatestSnapshot(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("no session recovered")
		return false, nil
	}
	if snap.Finalized {
		o.log.Info().Str("session_id", snap.ID.String()).Msg("latest session already finalized")
		return false, nil
	}
	s, err := session.Restore(snap)
	if err != nil {
		o.log.Error().Err(err).Str("session_id", snap.ID.String()).Msg("failed to restore session")
		return false, nil
	}

	var installErr error
	callErr := o.do(ctx, func() {
		if o.session != nil && !o.session.Finalized() {
			installErr = ErrSessionActive
			return
		}
		o.session = s
		o.sinceSave = 0
		o.broadcast()
	})
	if callErr != nil {
		return false, callErr
	}
	if installErr != nil {
		return false, installErr
	}

	state := s.ClockState()
	o.log.Info().
		Str("session_id", s.ID().String()).
		Int("elapsed_seconds", state.ElapsedSeconds).
		Int("level", state.CurrentLevelIndex+1).
		Time("saved_at", snap.SavedAt).
		Msg("session recovered")
	return true, nil
}

// Subscribe registers for updates. The returned channel is closed when the
// subscriber falls behind, cancel is called or the orchestrator stops.
func (o *Orchestrator) Subscribe(ctx context.Context) (<-chan Update, func(), error) {
	ch := make(chan Update, o.cfg.SubscriberBuffer)
	var id int
	err := o.do(ctx, func() {
		id = o.nextSubID
		o.nextSubID++
		o.subscribers[id] = ch
		ch <- o.update()
	})
	if err != nil {
		return nil, nil, err
	}
	cancel := func() {
		_ = o.do(context.Background(), func() {
			if sub, ok := o.subscribers[id]; ok {
				delete(o.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

func (o *Orchestrator) update() Update {
	if o.session == nil {
		return Update{}
	}
	v := o.session.View()
	return Update{Version: v.Version, View: &v}
}

// broadcast sends the current view to every subscriber, dropping any that
// cannot keep up.
func (o *Orchestrator) broadcast() {
	if len(o.subscribers) == 0 {
		return
	}
	u := o.update()
	for id, ch := range o.subscribers {
		select {
		case ch <- u:
		default:
			delete(o.subscribers, id)
			close(ch)
			o.log.Warn().Int("subscriber", id).Msg("dropping slow subscriber")
		}
	}
}
