package bridge

import (
	"sync"
	"time"
)

// Session is the process-wide operator-visible state: whether autonomous
// streaming is on, how often it samples, and whether raw probe replies are
// echoed. It is created at startup, mutated only through dispatcher verbs,
// and read by the sampler every tick. Nothing here survives a restart.
type Session struct {
	mu        sync.RWMutex
	streaming bool
	period    time.Duration
	echoRaw   bool
}

// NewSession creates a session with streaming off and the given period.
func NewSession(defaultPeriod time.Duration) *Session {
	return &Session{period: defaultPeriod}
}

func (s *Session) SetStreaming(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = on
}

func (s *Session) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

func (s *Session) SetPeriod(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = d
}

func (s *Session) Period() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

func (s *Session) SetEchoRaw(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echoRaw = on
}

func (s *Session) EchoRaw() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.echoRaw
}
