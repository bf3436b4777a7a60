package server

import (
	"errors"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/run"
)

// TelemetryReply is sent back for every GPS point received on the socket.
type TelemetryReply struct {
	Stats     pacer.RunStats  `json:"stats"`
	GPSStatus pacer.GPSStatus `json:"gpsStatus"`
}

// handleTelemetry upgrades to a websocket that takes one JSON GPS point per
// message and answers each with the run's current stats.
func handleTelemetry(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := runFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "run_id", h.id, "error", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var p pacer.GPSPoint
			if err := wsjson.Read(ctx, conn, &p); err != nil {
				logger.Debug("telemetry read ended", "run_id", h.id, "error", err)
				return
			}

			if err := h.engine.Ingest(p); errors.Is(err, run.ErrRunEnded) {
				conn.Close(websocket.StatusNormalClosure, "run ended")
				return
			}

			reply := TelemetryReply{Stats: h.engine.Stats(), GPSStatus: h.engine.GPSStatus()}
			if err := wsjson.Write(ctx, conn, reply); err != nil {
				logger.Debug("telemetry write failed", "run_id", h.id, "error", err)
				return
			}
		}
	}
}
