package client

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/coachline/coachline/internal/services"
)

// LiveSession binds the supervised session channel to the analysis
// scheduler: received transcript lines append to the client-side transcript,
// and every mutation re-feeds the scheduler.
type LiveSession struct {
	mu         sync.Mutex
	transcript string

	supervisor *Supervisor
	scheduler  *services.AnalysisScheduler
}

func NewLiveSession(dial DialFunc, scheduler *services.AnalysisScheduler, log *logrus.Logger, opts ...SupervisorOption) *LiveSession {
	ls := &LiveSession{scheduler: scheduler}
	ls.supervisor = NewSupervisor(dial, ls.appendTranscript, log, opts...)
	return ls
}

// Start enters live mode and opens the session channel. Returns the call id
// correlating this session's analysis requests.
func (ls *LiveSession) Start() string {
	id := ls.scheduler.StartLive()
	ls.supervisor.Start()
	return id
}

// Stop closes the channel and leaves live mode. The accumulated transcript
// is kept for post-call regeneration.
func (ls *LiveSession) Stop() {
	ls.supervisor.Stop()
	ls.scheduler.StopLive()
}

// Retry re-attempts the connection after the supervisor failed.
func (ls *LiveSession) Retry() {
	ls.supervisor.Retry()
}

func (ls *LiveSession) ConnectionState() State {
	return ls.supervisor.State()
}

func (ls *LiveSession) Transcript() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.transcript
}

func (ls *LiveSession) appendTranscript(text string, _ bool) {
	ls.mu.Lock()
	if strings.TrimSpace(ls.transcript) == "" {
		ls.transcript = text
	} else {
		ls.transcript = strings.TrimSpace(ls.transcript) + "\n" + text
	}
	next := ls.transcript
	ls.mu.Unlock()

	ls.scheduler.SetTranscript(next)
}
