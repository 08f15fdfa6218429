package realtime

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/opsdesk-api/internal/config"
)

// Listener feeds Postgres change notifications into a Hub
type Listener struct {
	dsn      string
	cfg      config.RealtimeConfig
	hub      *Hub
	log      zerolog.Logger
	listener *pq.Listener
}

// NewListener creates a listener for dsn publishing into hub
func NewListener(dsn string, cfg config.RealtimeConfig, hub *Hub, log zerolog.Logger) *Listener {
	return &Listener{
		dsn: dsn,
		cfg: cfg,
		hub: hub,
		log: log.With().Str("component", "realtime").Logger(),
	}
}

// Start connects, listens on the change channel and processes
// notifications until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	l.listener = pq.NewListener(l.dsn, l.cfg.MinReconnectInterval, l.cfg.MaxReconnectInterval, l.report)

	if err := l.listener.Listen(Channel); err != nil {
		l.listener.Close()
		return fmt.Errorf("failed to listen on %s channel: %w", Channel, err)
	}

	l.log.Info().Str("channel", Channel).Msg("Listening for table changes")

	go l.process(ctx)
	return nil
}

// Close stops the listener
func (l *Listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (l *Listener) report(ev pq.ListenerEventType, err error) {
	if err != nil {
		l.log.Error().Err(err).Msg("Change listener error")
	}
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed:
		l.log.Warn().Msg("Change listener connection attempt failed, will retry")
	case pq.ListenerEventDisconnected:
		l.log.Warn().Msg("Change listener disconnected, will attempt reconnect")
	case pq.ListenerEventReconnected:
		// notifications sent while disconnected are lost
		l.log.Info().Msg("Change listener reconnected, asking clients to reload")
		l.hub.Publish(Event{Table: "*", Operation: OpReload})
	}
}

func (l *Listener) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-l.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				continue
			}
			l.handle(n.Extra)
		}
	}
}

func (l *Listener) handle(payload string) {
	ev, err := ParsePayload(payload)
	if err != nil {
		l.log.Warn().Err(err).Msg("Ignoring change notification")
		return
	}

	n := l.hub.Publish(ev)
	l.log.Debug().
		Str("table", ev.Table).
		Str("operation", ev.Operation).
		Int("subscribers", n).
		Msg("Change notification received")
}
