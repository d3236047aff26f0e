package stt

import (
	"context"
	"time"
)

// Mock emits a placeholder customer line per flush. No raw audio is
// inspected or stored; it exists so the pipeline runs end to end without
// cloud credentials.
type Mock struct {
	now func() time.Time
}

func NewMock() *Mock {
	return &Mock{now: time.Now}
}

func (m *Mock) Close() error { return nil }

func (m *Mock) Transcribe(_ context.Context, frames [][]byte) (string, error) {
	if len(frames) == 0 {
		return "", nil
	}
	return "Customer: [Live speech at " + m.now().UTC().Format("15:04:05") + "].", nil
}
