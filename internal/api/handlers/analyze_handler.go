package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/coachline/coachline/internal/services"
	"github.com/coachline/coachline/internal/utils"
)

type AnalyzeHandler struct {
	analysis services.AnalysisService
	log      *logrus.Logger
}

func NewAnalyzeHandler(analysis services.AnalysisService, log *logrus.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analysis: analysis, log: log}
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Regenerate bool   `json:"regenerate"`
	CallID     string `json:"callId"`
	Speaker    string `json:"speaker"`
	// Unix millis when the transcript finished streaming, if the caller
	// tracks it. Feeds the streaming-delay metric.
	TranscriptionReadyAt *int64 `json:"transcriptionReadyAt"`
}

// Analyze runs one on-demand risk analysis over the posted transcript.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	const op = "AnalyzeHandler.Analyze"

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	in := services.AnalyzeInput{
		Transcript: req.Transcript,
		Regenerate: req.Regenerate,
		CallID:     req.CallID,
		Speaker:    req.Speaker,
	}
	if req.TranscriptionReadyAt != nil {
		t := time.UnixMilli(*req.TranscriptionReadyAt)
		in.TranscriptionReadyAt = &t
	}

	out, err := h.analysis.Analyze(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, out)
}
