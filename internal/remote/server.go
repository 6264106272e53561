package remote

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/roach88/citesync/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler exposes a transport (usually the embedded formatter) as a
// websocket endpoint speaking the request/response envelope. One message
// in, one message out, in order.
func Handler(transport protocol.Transport) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		slog.Info("formatter client connected", "remote", r.RemoteAddr)

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				slog.Info("formatter client disconnected", "error", err.Error())
				return
			}

			req, err := protocol.DecodeRequest(payload)
			if err != nil {
				slog.Warn("bad formatter request", "error", err)
				return
			}

			resp, err := transport.Roundtrip(r.Context(), req)
			if err != nil {
				slog.Error("formatter request failed", "kind", req.Kind, "error", err)
				return
			}

			data, err := protocol.EncodeResponse(resp)
			if err != nil {
				slog.Error("encode formatter response failed", "error", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("write formatter response failed", "error", err)
				return
			}
		}
	})
}
