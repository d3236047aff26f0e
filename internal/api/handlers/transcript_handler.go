package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	pgrepo "github.com/coachline/coachline/internal/repositories/postgres"
	"github.com/coachline/coachline/internal/utils"
)

type TranscriptHandler struct {
	transcripts pgrepo.TranscriptRepository // optional
	events      pgrepo.CallEventRepository  // optional
	log         *logrus.Logger
}

func NewTranscriptHandler(transcripts pgrepo.TranscriptRepository, events pgrepo.CallEventRepository, log *logrus.Logger) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts, events: events, log: log}
}

// ListTranscripts returns recently archived analysis transcripts,
// newest first.
func (h *TranscriptHandler) ListTranscripts(c *gin.Context) {
	const op = "TranscriptHandler.ListTranscripts"

	if h.transcripts == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "transcript archive is not configured", nil))
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	rows, err := h.transcripts.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to list transcripts", err))
		return
	}
	c.JSON(200, gin.H{"transcripts": rows, "count": len(rows)})
}

// ListCallEvents returns the recorded analysis events for one call,
// oldest first.
func (h *TranscriptHandler) ListCallEvents(c *gin.Context) {
	const op = "TranscriptHandler.ListCallEvents"

	if h.events == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "call event archive is not configured", nil))
		return
	}

	callID := c.Param("call_id")
	if callID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil))
		return
	}

	rows, err := h.events.ListByCall(c.Request.Context(), callID)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "failed to list call events", err))
		return
	}
	c.JSON(200, gin.H{"callId": callID, "events": rows, "count": len(rows)})
}
