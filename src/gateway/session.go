package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/hendrywilliam/halcyon/src/structs"
)

// Session tracks the identifiers a resume handshake needs: the session id
// handed out by READY and the sequence number of the last dispatch frame.
// Both live in process memory only, a restarted process always identifies
// from scratch.
type Session struct {
	rwlock sync.RWMutex

	id               string
	resumeGatewayURL string
	sequence         atomic.Uint64
}

func NewSession() *Session {
	return &Session{}
}

// Establish records the identifiers from a READY payload.
func (s *Session) Establish(id string, resumeGatewayURL string) {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	s.id = id
	s.resumeGatewayURL = resumeGatewayURL
}

// Invalidate clears the session so the next handshake is a fresh identify.
func (s *Session) Invalidate() {
	s.rwlock.Lock()
	defer s.rwlock.Unlock()
	s.id = ""
	s.resumeGatewayURL = ""
	s.sequence.Store(0)
}

// CanResume reports whether a prior session exists to resume into.
func (s *Session) CanResume() bool {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.id != ""
}

func (s *Session) ID() string {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.id
}

func (s *Session) ResumeGatewayURL() string {
	s.rwlock.RLock()
	defer s.rwlock.RUnlock()
	return s.resumeGatewayURL
}

// ObserveSequence is called for every dispatch frame so a later resume
// replays from the right point.
func (s *Session) ObserveSequence(seq uint64) {
	if seq != 0 {
		s.sequence.Store(seq)
	}
}

func (s *Session) Sequence() uint64 {
	return s.sequence.Load()
}

// IdentifyPayload builds the op 2 handshake frame.
func (s *Session) IdentifyPayload(cfg GatewayConfig) *structs.Event {
	return &structs.Event{
		Op: OpcodeIdentify,
		D: structs.IdentifyEvent{
			Token: cfg.BotToken,
			Properties: structs.IdentifyEventProperties{
				Os:      cfg.Os,
				Browser: cfg.ClientName,
				Device:  cfg.ClientName,
			},
			Compress:       false,
			LargeThreshold: cfg.LargeThreshold,
			Shard:          []uint{0, 1},
			Intents:        cfg.Intents,
		},
	}
}

// ResumePayload builds the op 6 handshake frame from the tracked state.
func (s *Session) ResumePayload(token string) *structs.Event {
	return &structs.Event{
		Op: OpcodeResume,
		D: structs.ResumeEvent{
			Token:     token,
			SessionID: s.ID(),
			Seq:       s.Sequence(),
		},
	}
}
