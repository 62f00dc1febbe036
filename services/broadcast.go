package services

import (
	"fmt"
	"log/slog"
)

// Event names sent to live viewers.
const (
	EventBallUpdated     = "ball-updated"
	EventInningsComplete = "innings-complete"
	EventPlayersUpdated  = "players-updated"
	EventMatchComplete   = "match-complete"
	EventSnapshot        = "snapshot"
)

// Broadcaster fans an event out to the viewers of a room. Implementations
// must not block and must not report delivery failures to the caller.
type Broadcaster interface {
	Broadcast(room string, event string, payload interface{})
}

// MatchRoom is the room name of a fixture's live viewers.
func MatchRoom(matchID int) string {
	return fmt.Sprintf("match_%d", matchID)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, string, interface{}) {}

// safeBroadcast sends an event and swallows broadcaster panics. Delivery to
// viewers is best-effort and never fails the command that produced it.
func safeBroadcast(logger *slog.Logger, b Broadcaster, room, event string, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("broadcast panicked",
				slog.String("room", room),
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()
	b.Broadcast(room, event, payload)
}
