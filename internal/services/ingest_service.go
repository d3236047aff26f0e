package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coachline/coachline/internal/models"
	"github.com/coachline/coachline/internal/providers/stt"
	mongorepo "github.com/coachline/coachline/internal/repositories/mongo"
)

const (
	// The telephony source sends ~50 frames/sec; flushing every 50 buffered
	// frames runs transcription roughly once per second.
	DefaultFramesPerFlush = 50

	// Byte cap per stream buffer. The frame-count flush is the primary path;
	// the cap only forces an early flush when frames are oversized.
	DefaultMaxBufferedBytes = 256 * 1024
)

// IngestService accumulates audio frames per stream and flushes them through
// the transcription provider into the broadcaster.
type IngestService interface {
	OnFrame(ctx context.Context, streamID string, payload []byte)
	// OnStop deletes the stream's buffer. Any unflushed remainder is
	// discarded, not transcribed.
	OnStop(streamID string)
	ActiveStreams() int
}

type streamBuffer struct {
	frames [][]byte
	count  int
	bytes  int
}

type ingestService struct {
	mu      sync.Mutex
	streams map[string]*streamBuffer

	stt         stt.Provider
	broadcaster Broadcaster
	segments    mongorepo.SegmentRepository // optional
	log         *logrus.Logger

	framesPerFlush int
	maxBytes       int
}

func NewIngestService(provider stt.Provider, b Broadcaster, segments mongorepo.SegmentRepository, log *logrus.Logger) IngestService {
	return &ingestService{
		streams:        make(map[string]*streamBuffer),
		stt:            provider,
		broadcaster:    b,
		segments:       segments,
		log:            log,
		framesPerFlush: DefaultFramesPerFlush,
		maxBytes:       DefaultMaxBufferedBytes,
	}
}

func (s *ingestService) OnFrame(ctx context.Context, streamID string, payload []byte) {
	s.mu.Lock()
	buf, ok := s.streams[streamID]
	if !ok {
		buf = &streamBuffer{}
		s.streams[streamID] = buf
	}
	buf.frames = append(buf.frames, payload)
	buf.count++
	buf.bytes += len(payload)

	if buf.count < s.framesPerFlush && buf.bytes < s.maxBytes {
		s.mu.Unlock()
		return
	}

	// Drain under the lock so the buffer resets atomically; transcription
	// runs outside it.
	frames := buf.frames
	buf.frames = nil
	buf.count = 0
	buf.bytes = 0
	s.mu.Unlock()

	s.flush(ctx, streamID, frames)
}

func (s *ingestService) flush(ctx context.Context, streamID string, frames [][]byte) {
	text, err := s.stt.Transcribe(ctx, frames)
	if err != nil {
		s.log.WithError(err).WithField("stream_id", streamID).Error("transcription failed")
		return
	}
	if text == "" {
		// No usable speech yet.
		return
	}

	event := models.TranscriptEvent{Type: "transcript", Text: text, IsFinal: true}
	s.log.WithFields(logrus.Fields{"stream_id": streamID, "text": text}).Info("transcript")
	s.broadcaster.Publish(event)

	if s.segments != nil {
		now := time.Now().UTC()
		seg := &models.TranscriptSegment{
			StreamID:  streamID,
			Text:      text,
			IsFinal:   true,
			Timestamp: now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
		if err := s.segments.Insert(ctx, seg); err != nil {
			// Auxiliary persistence; never blocks the broadcast path.
			s.log.WithError(err).Warn("segment insert failed")
		}
	}
}

func (s *ingestService) OnStop(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, streamID)
}

func (s *ingestService) ActiveStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}
