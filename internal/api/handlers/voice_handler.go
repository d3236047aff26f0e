package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type VoiceHandler struct {
	publicBaseURL string
	log           *logrus.Logger
}

func NewVoiceHandler(publicBaseURL string, log *logrus.Logger) *VoiceHandler {
	return &VoiceHandler{publicBaseURL: publicBaseURL, log: log}
}

// Voice answers the telephony webhook with TwiML that streams call media
// to the audio ingestion channel.
func (h *VoiceHandler) Voice(c *gin.Context) {
	wsURL := audioStreamURL(h.publicBaseURL)
	h.log.WithField("stream_url", wsURL).Info("voice webhook answered")

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Start>
    <Stream url="%s" />
  </Start>
  <Say>Connected. This call is being monitored for coaching.</Say>
  <Pause length="3600" />
</Response>`, wsURL)

	c.Header("Content-Type", "text/xml")
	c.String(200, twiml)
}

func audioStreamURL(base string) string {
	u := strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/audio"
}
