package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/gateway"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/orchestrator"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/outbox"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/repository"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/telegram"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/template"
)

// Services is everything main starts and stops.
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Gateway      *gateway.Service
	// Listener is nil unless both Postgres and NATS are configured.
	Listener *outbox.Listener

	closers []func()
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupServices(ctx context.Context, cfg Config, logger zerolog.Logger) (*Services, error) {
	services := &Services{}
	fail := func(err error) (*Services, error) {
		services.Close()
		return nil, err
	}

	templates, err := setupTemplates(cfg, logger)
	if err != nil {
		return fail(err)
	}

	var (
		store    orchestrator.SnapshotStore
		history  orchestrator.HistorySink
		reader   gateway.HistoryReader
		database *sql.DB
	)
	switch cfg.Store {
	case StoreMemory:
		mem := repository.NewMemoryStore()
		store, history, reader = mem, mem, mem
		logger.Warn().Msg("using in-memory store, sessions will not survive a restart")
	case StorePostgres:
		var pool *pgxpool.Pool
		if pool, err = setupPool(ctx, cfg.Database); err != nil {
			return fail(err)
		}
		services.closers = append(services.closers, pool.Close)

		if database, err = setupDatabase(ctx, cfg.Database); err != nil {
			return fail(err)
		}
		services.closers = append(services.closers, func() { database.Close() })

		historyRepo := repository.NewHistoryRepository(database)
		store, history, reader = repository.NewSnapshotStore(pool), historyRepo, historyRepo
	default:
		return fail(fmt.Errorf("unknown store %q", cfg.Store))
	}

	clock := clockwork.NewRealClock()
	notifiers := orchestrator.MultiNotifier{orchestrator.LogNotifier{Logger: logger}}
	sinks := orchestrator.MultiHistorySink{history}

	var counters *outbox.Counters
	if cfg.NATSURL != "" {
		jsCfg := outbox.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		publisher, err := outbox.NewJetStreamPublisher(jsCfg, clock, logger)
		if err != nil {
			return fail(err)
		}
		services.closers = append(services.closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close publisher")
			}
		})

		counters = outbox.NewCounters(clock)
		metered := outbox.NewMetricPublisher(publisher, counters, clock)
		notifiers = append(notifiers, outbox.EventNotifier{Publisher: metered})

		if database != nil {
			// finalized sessions reach the stream through the outbox table
			ltCfg := outbox.DefaultListenerConfig()
			ltCfg.DatabaseURL = cfg.Database.DSN()
			listener, err := outbox.NewListener(database, metered, clock, ltCfg, logger)
			if err != nil {
				return fail(err)
			}
			services.Listener = listener
		} else {
			sinks = append(sinks, outbox.HistoryPublisher{Publisher: metered})
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			return fail(err)
		}
		tg := telegram.NewNotifier(bot, cfg.TelegramChatID, logger)
		notifiers = append(notifiers, tg)
		sinks = append(sinks, tg)
		logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	}

	services.Orchestrator = orchestrator.New(store, notifiers, sinks, clock, logger, orchestrator.Config{
		TickInterval:      cfg.TickInterval,
		PersistEveryTicks: cfg.PersistEveryTicks,
	})

	// a nil *Counters must not become a non-nil interface
	var stats gateway.OutboxStats
	if counters != nil {
		stats = counters
	}
	gwCfg := gateway.DefaultConfig()
	gwCfg.AllowClientCommands = cfg.WSClientCommands
	gwCfg.AllowedOrigins = cfg.WSAllowedOrigins
	services.Gateway = gateway.NewService(gwCfg, services.Orchestrator, templates, reader, stats, logger)
	return services, nil
}

func setupTemplates(cfg Config, logger zerolog.Logger) (*template.Library, error) {
	lib := template.Builtin()
	if cfg.TemplatesPath == "" {
		return lib, nil
	}
	custom, err := template.LoadFile(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	if skipped := lib.Merge(custom); len(skipped) > 0 {
		logger.Warn().Strs("template_ids", skipped).Msg("templates shadowed by presets were skipped")
	}
	logger.Info().Int("templates", lib.Len()).Str("path", cfg.TemplatesPath).Msg("template library loaded")
	return lib, nil
}
