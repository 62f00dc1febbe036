package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/uniplay/realtime"
	"github.com/Dosada05/uniplay/services"
)

type WebSocketHandler struct {
	hub         *realtime.Hub
	liveService services.LiveMatchService
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(hub *realtime.Hub, ls services.LiveMatchService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:         hub,
		liveService: ls,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := set[u.Scheme+"://"+u.Host]
		return ok
	}
}

// ServeWs joins the viewer to room match_<matchID>. When scoring has started
// the first frame is a snapshot of the current state.
// @Summary Live match event stream (websocket)
// @Tags live-matches
// @Param matchID path int true "Fixture ID"
// @Router /ws/matches/{matchID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var snapshot []byte
	match, err := h.liveService.GetLiveMatch(r.Context(), matchID)
	switch {
	case err == nil:
		snapshot, err = realtime.NewEnvelope(services.MatchRoom(matchID), services.EventSnapshot, match, time.Now())
		if err != nil {
			serverErrorResponse(w, r, err)
			return
		}
	case errors.Is(err, services.ErrLiveMatchNotFound):
	default:
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade viewer connection", slog.Int("match_id", matchID), slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, services.MatchRoom(matchID))
	if snapshot != nil {
		client.Queue(snapshot)
	}
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
