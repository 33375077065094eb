package orchestrator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/events"
)

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, events.Event) error { return nil }

type NopHistorySink struct{}

func (NopHistorySink) RecordHistory(context.Context, models.HistoryRecord) error { return nil }

// LogNotifier writes every event to a logger. Notification events are logged
// at info level, the rest at debug.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev events.Event) error {
	e := n.Logger.Debug()
	if ev.Type.Notification() {
		e = n.Logger.Info()
	}
	e.Str("event_id", ev.ID.String()).
		Str("session_id", ev.SessionID.String()).
		Str("event_type", string(ev.Type)).
		RawJSON("data", ev.Data).
		Msg("tournament event")
	return nil
}

// MultiNotifier fans an event out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev events.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiHistorySink records to every sink and joins their errors.
type MultiHistorySink []HistorySink

func (m MultiHistorySink) RecordHistory(ctx context.Context, rec models.HistoryRecord) error {
	var errs []error
	for _, h := range m {
		if err := h.RecordHistory(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
