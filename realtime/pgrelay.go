package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// RelayChannel is the Postgres NOTIFY channel shared by all instances.
	RelayChannel = "uniplay_live"

	reconnectBackoff = time.Second
	maxReconnect     = 30 * time.Second
	relayQueueSize   = 512

	// Postgres rejects NOTIFY payloads of 8000 bytes or more.
	maxNotifyPayload = 7999
)

// PGRelay carries broadcasts between instances over LISTEN/NOTIFY. Every
// instance, including the sender, receives each envelope from its listener
// and delivers it to its own viewers.
type PGRelay struct {
	pool   *pgxpool.Pool
	dbURL  string
	hub    *Hub
	queue  chan []byte
	logger *slog.Logger
}

func NewPGRelay(pool *pgxpool.Pool, dbURL string, hub *Hub, logger *slog.Logger) *PGRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGRelay{
		pool:   pool,
		dbURL:  dbURL,
		hub:    hub,
		queue:  make(chan []byte, relayQueueSize),
		logger: logger,
	}
}

// Publish enqueues env for the single publisher goroutine, which keeps
// NOTIFY order equal to broadcast order.
func (r *PGRelay) Publish(env []byte) bool {
	if len(env) > maxNotifyPayload {
		return false
	}
	select {
	case r.queue <- env:
		return true
	default:
		return false
	}
}

// Run publishes and listens until ctx is cancelled. Intended to be called with `go`.
func (r *PGRelay) Run(ctx context.Context) {
	go r.publishLoop(ctx)

	backoff := reconnectBackoff
	for {
		err := r.listen(ctx)
		if ctx.Err() != nil {
			r.logger.Info("live relay stopped")
			return
		}
		r.logger.Error("live relay disconnected, reconnecting", slog.Any("error", err), slog.Duration("backoff", backoff))

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

func (r *PGRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-r.queue:
			if _, err := r.pool.Exec(ctx, "SELECT pg_notify($1, $2)", RelayChannel, string(env)); err != nil {
				r.logger.Warn("failed to relay broadcast, delivering locally", slog.Any("error", err))
				r.deliver(env)
			}
		}
	}
}

func (r *PGRelay) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, r.dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+RelayChannel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", RelayChannel, err)
	}
	r.logger.Info("live relay connected", slog.String("channel", RelayChannel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		r.deliver([]byte(n.Payload))
	}
}

func (r *PGRelay) deliver(env []byte) {
	var header struct {
		Type   string `json:"type"`
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(env, &header); err != nil || header.RoomID == "" {
		r.logger.Warn("ignoring malformed relay payload", slog.Any("error", err))
		return
	}
	r.hub.DeliverLocal(header.RoomID, header.Type, env)
}
