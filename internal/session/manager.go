// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/errors"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/peerconn"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// HandlerFactory builds a fresh handler instance per new connection,
// mirroring StreamHandlerBase.copy().
type HandlerFactory func() handler.AudioHandler

// Manager owns every live Session, enforcing the concurrency cap and
// coordinating offer/answer exchange and teardown.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	// telephonyActive counts live telephony bridges, which share the same
	// concurrency pool as WebRTC sessions but (having no peer connection)
	// never get an entry in sessions.
	telephonyActive int

	factory          *peerconn.Factory
	logger           logging.Logger
	concurrencyLimit int
	timeLimit        time.Duration
}

// NewManager builds a Manager. concurrencyLimit <= 0 means unlimited.
func NewManager(factory *peerconn.Factory, logger logging.Logger, concurrencyLimit int, timeLimit time.Duration) *Manager {
	return &Manager{
		sessions:         make(map[string]*Session),
		factory:          factory,
		logger:           logger,
		concurrencyLimit: concurrencyLimit,
		timeLimit:        timeLimit,
	}
}

// Count returns the number of currently live sessions and telephony
// bridges — everything counted against the concurrency cap.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalActiveLocked()
}

// totalActiveLocked returns the combined count of WebRTC sessions and
// active telephony bridges. Callers must hold m.mu.
func (m *Manager) totalActiveLocked() int {
	return len(m.sessions) + m.telephonyActive
}

// AcquireTelephonySlot reserves one concurrency slot for a telephony
// bridge. Unlike a WebRTC offer, a telephony connection has no peer
// connection to register in the session table, but it still counts
// against the same concurrency cap ("enforced identically to the WebRTC
// path"). Returns false if the cap is already reached; the caller must
// pair a true result with a later ReleaseTelephonySlot.
func (m *Manager) AcquireTelephonySlot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.concurrencyLimit > 0 && m.totalActiveLocked() >= m.concurrencyLimit {
		return false
	}
	m.telephonyActive++
	return true
}

// ReleaseTelephonySlot frees a slot reserved by AcquireTelephonySlot, run
// once the bridge's connection ends — the telephony-side equivalent of
// CleanUp.
func (m *Manager) ReleaseTelephonySlot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.telephonyActive > 0 {
		m.telephonyActive--
	}
}

// Get returns the session for id, if any.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// HandleOffer negotiates a new peer connection for an SDP offer, enforcing
// the concurrency cap before any connection is created.
func (m *Manager) HandleOffer(offerSDP string, newHandler HandlerFactory) (answerSDP, sessionID string, err error) {
	m.mu.Lock()
	if m.concurrencyLimit > 0 && m.totalActiveLocked() >= m.concurrencyLimit {
		m.mu.Unlock()
		return "", "", errors.Newf(errors.KindConcurrencyExhausted, "concurrency_limit_reached: limit=%d", m.concurrencyLimit)
	}
	m.mu.Unlock()

	pc, err := m.factory.NewPeerConnection()
	if err != nil {
		return "", "", errors.New(errors.KindProtocolFault, err)
	}

	id := uuid.New().String()
	h := newHandler()
	sess := New(id, pc, h, m.logger.With("session_id", id))

	if track, err := createLocalAudioTrack(pc); err != nil {
		m.logger.Warnw("failed to add outbound audio track", "session_id", id, "error", err)
	} else {
		sess.AudioTrack = track
	}

	m.registerHandlers(sess)
	m.attachRemoteTrackHandlers(sess)

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}); err != nil {
		_ = pc.Close()
		return "", "", errors.New(errors.KindProtocolFault, err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		_ = pc.Close()
		return "", "", errors.New(errors.KindProtocolFault, err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		_ = pc.Close()
		return "", "", errors.New(errors.KindProtocolFault, err)
	}

	m.mu.Lock()
	// Re-check under lock: two offers racing past the first check above
	// could otherwise both pass.
	if m.concurrencyLimit > 0 && m.totalActiveLocked() >= m.concurrencyLimit {
		m.mu.Unlock()
		_ = pc.Close()
		return "", "", errors.Newf(errors.KindConcurrencyExhausted, "concurrency_limit_reached: limit=%d", m.concurrencyLimit)
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	sess.Start()

	return pc.LocalDescription().SDP, id, nil
}

func (m *Manager) registerHandlers(sess *Session) {
	pc := sess.PC

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state == webrtc.ICEConnectionStateFailed {
			m.CleanUp(sess.ID)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			m.CleanUp(sess.ID)
		case webrtc.PeerConnectionStateConnected:
			if m.timeLimit > 0 {
				go m.waitForTimeLimit(sess)
			}
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			sess.SetDataChannel(dc)
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			m.logger.Debugf("session %s data channel message: %s", sess.ID, string(msg.Data))
		})
	})
}

func (m *Manager) waitForTimeLimit(sess *Session) {
	select {
	case <-time.After(m.timeLimit):
		_ = sess.PC.Close()
	case <-sess.Context().Done():
	}
}

// CleanUp idempotently tears down and forgets a session.
func (m *Manager) CleanUp(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.Close(); err != nil {
		m.logger.Warnw("error closing session", "session_id", id, "error", err)
	}
}

// SetInput forwards client-pushed input arguments to a live session's
// handler. Returns an error if the session is unknown.
func (m *Manager) SetInput(id string, args []interface{}) error {
	sess, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	sess.SetArgs(args)
	return nil
}
