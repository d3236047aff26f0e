package stt

import "context"

// Provider turns a batch of buffered audio frames into transcript text.
// An empty string means no usable speech yet; callers must tolerate it.
// Implementations are swappable without touching buffering logic.
type Provider interface {
	Transcribe(ctx context.Context, frames [][]byte) (string, error)
	Close() error
}
