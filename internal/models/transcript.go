package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"
)

// Speaker tags recognized in a live transcript.
type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
	SpeakerUnknown  Speaker = "unknown"
)

// Utterance is one speaker turn, immutable once parsed.
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// TranscriptEvent is the session-channel payload sent to viewers.
type TranscriptEvent struct {
	Type    string `json:"type"` // "transcript"
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// Transcript is one archived analysis input with its headline scores.
type Transcript struct {
	ID             string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TranscriptText string    `gorm:"column:transcript_text;type:text" json:"transcript_text"`
	EscalationRisk int       `gorm:"column:escalation_risk" json:"escalation_risk"`
	ComplaintRisk  int       `gorm:"column:complaint_risk" json:"complaint_risk"`
	Deescalation   string    `gorm:"column:deescalation_response;type:text" json:"deescalation_response"`
	ToneGuidance   string    `gorm:"column:tone_guidance;type:text" json:"tone_guidance"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (Transcript) TableName() string { return "transcripts" }

// CallEvent is one structured trajectory point for a live call. Inserted
// best-effort after each analysis; a stable call id reconstructs the full
// escalation trajectory later.
type CallEvent struct {
	ID                    string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CallID                string         `gorm:"column:call_id;type:uuid;index" json:"call_id"`
	Timestamp             time.Time      `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Speaker               string         `gorm:"column:speaker;type:text" json:"speaker"`
	TranscriptSegment     string         `gorm:"column:transcript_segment;type:text" json:"transcript_segment"`
	RollingEscalationRisk int            `gorm:"column:rolling_escalation_risk" json:"rolling_escalation_risk"`
	RollingComplaintRisk  int            `gorm:"column:rolling_complaint_risk" json:"rolling_complaint_risk"`
	DetectedTriggers      datatypes.JSON `gorm:"column:detected_triggers;type:jsonb" json:"detected_triggers"`
	TriggerReason         string         `gorm:"column:trigger_reason;type:text" json:"trigger_reason"`
	SuggestedScript       string         `gorm:"column:suggested_script;type:text" json:"suggested_script"`
	TacticalGuidance      string         `gorm:"column:tactical_guidance;type:text" json:"tactical_guidance"`
	ResponseLatencyMS     int64          `gorm:"column:response_latency_ms" json:"response_latency_ms"`
	EscalationLevel       string         `gorm:"column:escalation_level;type:text" json:"escalation_level"`
	UrgencyLevel          string         `gorm:"column:urgency_level;type:text" json:"urgency_level"`
}

func (CallEvent) TableName() string { return "call_events" }

// TranscriptSegment is one flushed transcript chunk kept in mongo with a TTL
// so a mid-call viewer reconnect can backfill recent lines.
type TranscriptSegment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StreamID  string             `bson:"stream_id" json:"stream_id"`
	Text      string             `bson:"text" json:"text"`
	IsFinal   bool               `bson:"is_final" json:"is_final"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"` // for TTL index
}
