package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/coachline/coachline/internal/services"
)

// WSHandler terminates both streaming channels: the telephony audio
// ingestion channel and the viewer session channel.
type WSHandler struct {
	ingest      services.IngestService
	broadcaster services.Broadcaster
	log         *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(ingest services.IngestService, b services.Broadcaster, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		ingest:      ingest,
		broadcaster: b,
		log:         log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

// Ingestion channel message. The source sends line-delimited JSON events:
// start{streamSid}, media{streamSid, payload}, stop{streamSid}. No
// acknowledgment is returned.
type audioMsg struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Start     *struct {
		StreamSid string `json:"streamSid"`
	} `json:"start"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// wsConn serializes writes; gorilla conns allow one concurrent writer.
type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

// AudioWS receives the telephony media stream. Malformed messages are
// logged and dropped; the connection stays open.
func (h *WSHandler) AudioWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := h.log.WithField("channel", "audio")
	log.Info("audio stream connected")

	var streamID string
	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			break
		}

		var msg audioMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("malformed ingestion message dropped")
			continue
		}

		switch msg.Event {
		case "start":
			if msg.Start != nil && msg.Start.StreamSid != "" {
				streamID = msg.Start.StreamSid
			} else if msg.StreamSid != "" {
				streamID = msg.StreamSid
			}

		case "media":
			if msg.Media == nil || msg.Media.Payload == "" {
				log.Warn("media message without payload dropped")
				continue
			}
			if msg.StreamSid != "" {
				streamID = msg.StreamSid
			}
			if streamID == "" {
				streamID = "default"
			}
			payload, derr := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if derr != nil {
				log.WithError(derr).Warn("undecodable media payload dropped")
				continue
			}
			h.ingest.OnFrame(c.Request.Context(), streamID, payload)

		case "stop":
			if streamID != "" {
				h.ingest.OnStop(streamID)
			}
			streamID = ""

		default:
			log.WithField("event", msg.Event).Warn("unknown ingestion event dropped")
		}
	}

	// Source disconnect discards any unflushed remainder.
	if streamID != "" {
		h.ingest.OnStop(streamID)
	}
	log.Info("audio stream disconnected")
}

// SessionWS subscribes a viewer to transcript events: one connected
// acknowledgment, then transcript events until disconnect.
func (h *WSHandler) SessionWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	if err := wc.WriteJSON(map[string]string{"type": "connected", "message": "session stream"}); err != nil {
		return
	}

	h.broadcaster.Subscribe(wc)
	defer h.broadcaster.Unsubscribe(wc)

	// Viewers never send application messages; read until close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
