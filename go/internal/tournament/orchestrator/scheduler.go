package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

// Run drives the session until ctx is cancelled. It starts the event
// dispatcher and the persister and waits for both before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info().
		Dur("tick_interval", o.cfg.TickInterval).
		Int("persist_every_ticks", o.cfg.PersistEveryTicks).
		Msg("orchestrator started")

	// background work outlives ctx long enough to flush
	bgCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go o.dispatchEvents(bgCtx, &wg)
	go o.persistSnapshots(bgCtx, &wg)

	defer func() {
		o.stopTicker()
		if o.session != nil && !o.session.Finalized() {
			o.persist()
		}
		for id, ch := range o.subscribers {
			delete(o.subscribers, id)
			close(ch)
		}
		close(o.stopped)
		close(o.eventCh)
		o.persists.close()
		wg.Wait()
		o.log.Info().Msg("orchestrator stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("orchestrator shutdown requested")
			return nil
		case req := <-o.inbox:
			req.fn()
			close(req.done)
		case <-o.tickChan():
			o.tick()
		}
	}
}

// tickChan is nil while paused, which blocks that select case.
func (o *Orchestrator) tickChan() <-chan time.Time {
	if o.ticker == nil {
		return nil
	}
	return o.ticker.Chan()
}

func (o *Orchestrator) startTicker() {
	if o.ticker != nil {
		return
	}
	o.ticker = o.clock.NewTicker(o.cfg.TickInterval)
	o.log.Debug().Msg("ticker started")
}

func (o *Orchestrator) stopTicker() {
	if o.ticker == nil {
		return
	}
	o.ticker.Stop()
	o.ticker = nil
	o.log.Debug().Msg("ticker stopped")
}

// tick is one step of the running clock.
func (o *Orchestrator) tick() {
	if o.session == nil || !o.session.Running() {
		o.stopTicker()
		return
	}
	signals := o.session.Step()
	o.emit(signals)
	for _, sig := range signals {
		if sig.Type == events.EventTypeLevelAdvanced {
			if p, ok := sig.Payload.(events.LevelAdvancedPayload); ok {
				o.log.Info().
					Str("session_id", o.session.ID().String()).
					Int("level", p.ToLevel).
					Int64("small_blind", p.SmallBlind).
					Int64("big_blind", p.BigBlind).
					Int64("ante", p.Ante).
					Msg("level advanced")
			}
		}
	}

	o.sinceSave++
	if o.sinceSave >= o.cfg.PersistEveryTicks {
		o.persist()
	}
	o.broadcast()
}

// emit stamps signals and queues them for the dispatcher without blocking.
func (o *Orchestrator) emit(signals []events.Signal) {
	if o.session == nil {
		return
	}
	now := o.clock.Now()
	for _, sig := range signals {
		ev, err := sig.Stamp(o.session.ID(), now)
		if err != nil {
			o.log.Error().Err(err).Str("event_type", string(sig.Type)).Msg("failed to build event")
			continue
		}
		select {
		case o.eventCh <- ev:
		default:
			o.log.Warn().Str("event_type", string(ev.Type)).Msg("event channel full, dropping event")
		}
	}
}

// persist queues a snapshot of the live session.
func (o *Orchestrator) persist() {
	if o.session == nil {
		return
	}
	o.sinceSave = 0
	o.enqueuePersist(persistJob{snapshot: o.session.Snapshot(o.clock.Now())})
}

// enqueuePersist hands job to the persister. Discards and finalized
// snapshots are always written, in order; a pending save of the same session
// is replaced by the newer one.
func (o *Orchestrator) enqueuePersist(job persistJob) {
	if o.persists.push(job) {
		o.log.Debug().
			Str("session_id", job.snapshot.ID.String()).
			Uint64("version", job.snapshot.Version).
			Msg("pending snapshot replaced")
	}
}

func (o *Orchestrator) dispatchEvents(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for ev := range o.eventCh {
		if err := o.notifier.Notify(ctx, ev); err != nil {
			o.log.Error().
				Err(err).
				Str("event_type", string(ev.Type)).
				Str("session_id", ev.SessionID.String()).
				Msg("failed to deliver event")
		}
	}
}

func (o *Orchestrator) persistSnapshots(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		job, ok := o.persists.pop()
		if !ok {
			return
		}
		if o.store == nil {
			continue
		}
		saveCtx, cancel := context.WithTimeout(ctx, o.cfg.SaveTimeout)
		var err error
		if job.discard {
			err = o.store.DeleteSnapshot(saveCtx, job.snapshot.ID)
		} else {
			err = o.store.SaveSnapshot(saveCtx, job.snapshot)
		}
		cancel()
		if err != nil {
			o.log.Error().
				Err(err).
				Str("session_id", job.snapshot.ID.String()).
				Bool("discard", job.discard).
				Msg("failed to persist snapshot")
		}
	}
}
