package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/db"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "tournament_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// outboxQueries is the part of db.Queries the relay uses.
type outboxQueries interface {
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (db.TournamentOutbox, error)
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]db.TournamentOutbox, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
}

// Listener relays outbox rows to the publisher. Postgres notifications give
// low latency; a periodic sweep picks up anything a notification missed.
type Listener struct {
	queries   outboxQueries
	listener  *pq.Listener
	publisher EventPublisher
	clock     clockwork.Clock
	cfg       ListenerConfig
	log       zerolog.Logger
}

// NewListener subscribes to the outbox channel. clock drives the sweep,
// keepalive and retry timers; nil uses the real clock.
func NewListener(dbConn *sql.DB, publisher EventPublisher, clock clockwork.Clock, cfg ListenerConfig, logger zerolog.Logger) (*Listener, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = logger.With().Str("component", "outbox_listener").Logger()
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	logger.Info().Str("channel", cfg.NotifyChannel).Msg("listening for notifications")

	return &Listener{
		queries:   db.New(dbConn),
		listener:  l,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		log:       logger,
	}, nil
}

func (l *Listener) Start(ctx context.Context) error {
	l.log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
	fallbackTicker := l.clock.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// rows written while the relay was down
	if err := l.processUnsent(ctx); err != nil {
		l.log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established, notifications may have been lost
				if err := l.processUnsent(ctx); err != nil {
					l.log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				l.log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.Chan():
			if err := l.processUnsent(ctx); err != nil {
				l.log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.Chan():
			if err := l.listener.Ping(); err != nil {
				l.log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// handleNotification publishes the outbox row whose ID is the notification payload.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	row, err := l.queries.FetchOutboxByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if row.SentAt.Valid {
		return nil
	}
	return l.relay(ctx, row)
}

// processUnsent publishes every unsent row, oldest first.
func (l *Listener) processUnsent(ctx context.Context) error {
	unsent, err := l.queries.FetchUnsentOutbox(ctx, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	for _, row := range unsent {
		if err := l.relay(ctx, row); err != nil {
			l.log.Error().Err(err).Str("event_id", row.ID.String()).Msg("failed to relay event")
		}
	}
	return nil
}

func (l *Listener) relay(ctx context.Context, row db.TournamentOutbox) error {
	event := OutboxEvent{
		ID:        row.ID,
		SessionID: row.SessionID,
		EventType: row.EventType,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
	}
	if err := l.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := l.queries.MarkOutboxSent(ctx, row.ID); err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	l.log.Info().Str("event_id", row.ID.String()).Str("event_type", row.EventType).Msg("published and marked event as sent")
	return nil
}

// publishWithRetry attempts to publish an outbox event, backing off linearly
// between attempts.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.clock.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			l.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			l.log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
