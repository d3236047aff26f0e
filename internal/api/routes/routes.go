package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/coachline/coachline/internal/api/handlers"
)

type Deps struct {
	Analyze    *handlers.AnalyzeHandler
	Health     *handlers.HealthHandler
	Voice      *handlers.VoiceHandler
	Transcript *handlers.TranscriptHandler
	WS         *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/api/system-health", d.Health.SystemHealth)

	// Telephony webhook
	r.POST("/twilio/voice", d.Voice.Voice)

	// Analysis + archives
	r.POST("/api/analyze", d.Analyze.Analyze)
	r.GET("/api/transcripts", d.Transcript.ListTranscripts)
	r.GET("/api/calls/:call_id/events", d.Transcript.ListCallEvents)

	// WebSocket
	r.GET("/ws/audio", d.WS.AudioWS)
	r.GET("/ws/session", d.WS.SessionWS)
}
