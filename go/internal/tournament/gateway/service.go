package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/siner/nextjs.pokerclock-sub000/go/internal/tournament/orchestrator"
)

// Service serves the control API and streams session state to websocket
// clients.
type Service struct {
	controller  Controller
	templates   TemplateSource
	history     HistoryReader
	outbox      OutboxStats
	connections *ConnectionManager
	handler     http.Handler
	log         zerolog.Logger
}

// Config holds gateway settings.
type Config struct {
	ConnectionConfig ConnectionConfig
	// AllowClientCommands lets websocket clients send control actions. When
	// set, browsers may only connect from the server's own origin or one of
	// AllowedOrigins.
	AllowClientCommands bool
	AllowedOrigins      []string
}

// DefaultConfig returns default gateway settings. The websocket stream is
// read-only.
func DefaultConfig() Config {
	return Config{ConnectionConfig: DefaultConnectionConfig()}
}

// NewService creates the gateway. stats may be nil when no outbox relay runs.
func NewService(cfg Config, controller Controller, templates TemplateSource, history HistoryReader, stats OutboxStats, logger zerolog.Logger) *Service {
	s := &Service{
		controller: controller,
		templates:  templates,
		history:    history,
		outbox:     stats,
		log:        logger.With().Str("component", "gateway").Logger(),
	}
	connCfg := cfg.ConnectionConfig
	var command CommandFunc
	if cfg.AllowClientCommands {
		command = controller.Do
		connCfg.CheckOrigin = originChecker(cfg.AllowedOrigins)
	}
	s.connections = NewConnectionManager(connCfg, command, logger)
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler of the gateway.
func (s *Service) Handler() http.Handler { return s.handler }

// Start relays orchestrator updates to websocket clients until ctx is
// cancelled or the orchestrator stops.
func (s *Service) Start(ctx context.Context) error {
	s.log.Info().Msg("starting gateway")
	go s.connections.Start(ctx)

	for {
		updates, cancel, err := s.controller.Subscribe(ctx)
		if err != nil {
			if errors.Is(err, orchestrator.ErrStopped) || ctx.Err() != nil {
				s.log.Info().Msg("gateway stopped")
				return nil
			}
			return err
		}
		s.relay(ctx, updates)
		cancel()
		if ctx.Err() != nil {
			s.log.Info().Msg("gateway stopped")
			return nil
		}
		// dropped for falling behind; subscribing again sends the current state
		s.log.Warn().Msg("update subscription dropped, resubscribing")
	}
}

func (s *Service) relay(ctx context.Context, updates <-chan orchestrator.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			s.connections.BroadcastUpdate(u)
		}
	}
}

// originChecker accepts requests without an Origin header, requests from the
// host being served and requests from one of allowed.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return slices.ContainsFunc(allowed, func(a string) bool {
			return strings.EqualFold(strings.TrimSuffix(a, "/"), origin)
		})
	}
}
