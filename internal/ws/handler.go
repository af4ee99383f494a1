package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/hub"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/lobby"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

// Handler upgrades /ws?code=<room>&name=<user> and relays frames between the
// connection and the room's lobby.
func Handler(h *hub.Hub, ids *identity.Registry, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if identity.ToID(name) == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}

		lb := h.Get(code)
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		user := ids.Connect(name)
		defer ids.Disconnect(user.ID)

		clientID := uuid.NewString()
		log := logger.With(zap.String("room", code), zap.String("client", clientID), zap.String("user", string(user.ID)))

		out := make(chan types.ServerMessage, outboxSize)
		if !lb.Send(lobby.Join{ClientID: clientID, User: user, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer lb.Send(lobby.Leave{ClientID: clientID})

		// Writer goroutine. The lobby closes out when it drops this client.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err := wsjson.Write(ctx, conn, msg)
				cancel()
				if err != nil {
					log.Debug("write frame", zap.Error(err))
					break
				}
			}
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read frame", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeError(r.Context(), conn, "bad json")
				continue
			}
			if !lb.Send(lobby.FromClient{ClientID: clientID, Msg: cm}) {
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, types.ServerMessage{Type: types.ServerError, Error: msg})
}
