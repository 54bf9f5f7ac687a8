// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import (
	"testing"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/peerconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopHandler struct {
	base *handler.Base
}

func newNoopHandler() handler.AudioHandler {
	return &noopHandler{base: handler.NewBase(media.DefaultAudioConfig(), true)}
}

func (n *noopHandler) Base() *handler.Base          { return n.base }
func (n *noopHandler) Copy() handler.AudioHandler   { return newNoopHandler() }
func (n *noopHandler) StartUp()                     {}
func (n *noopHandler) Receive(frame media.AudioFrame) {}
func (n *noopHandler) Emit() *handler.EmitResult    { return nil }

func newTestManager(t *testing.T, limit int) *Manager {
	t.Helper()
	// No ICE servers: offer/answer negotiation stays local, avoiding any
	// dependency on outbound network access from the test environment.
	factory, err := peerconn.NewFactory(peerconn.Config{})
	require.NoError(t, err)
	return NewManager(factory, logging.NewTestLogger(), limit, 0)
}

const minimalOfferSDP = `v=0
o=- 0 0 IN IP4 127.0.0.1
s=-
t=0 0
a=group:BUNDLE 0
m=application 9 UDP/DTLS/SCTP webrtc-datachannel
c=IN IP4 0.0.0.0
a=ice-ufrag:test
a=ice-pwd:testtesttesttesttesttest1
a=fingerprint:sha-256 00:11:22:33:44:55:66:77:88:99:AA:BB:CC:DD:EE:FF:00:11:22:33:44:55:66:77:88:99:AA:BB:CC:DD:EE:FF
a=setup:actpass
a=mid:0
a=sctp-port:5000
`

func TestManager_CleanUp_IsIdempotent(t *testing.T) {
	m := newTestManager(t, 0)
	assert.NotPanics(t, func() {
		m.CleanUp("does-not-exist")
		m.CleanUp("does-not-exist")
	})
}

func TestManager_SetInput_UnknownSessionReturnsError(t *testing.T) {
	m := newTestManager(t, 0)
	err := m.SetInput("does-not-exist", []interface{}{"x"})
	assert.Error(t, err)
}

func TestManager_HandleOffer_RejectsPastConcurrencyLimit(t *testing.T) {
	m := newTestManager(t, 1)

	_, id1, err := m.HandleOffer(minimalOfferSDP, newNoopHandler)
	require.NoError(t, err)
	require.NotEmpty(t, id1)
	assert.Equal(t, 1, m.Count())

	_, _, err = m.HandleOffer(minimalOfferSDP, newNoopHandler)
	require.Error(t, err)

	m.CleanUp(id1)
	assert.Equal(t, 0, m.Count())
}

func TestManager_AcquireTelephonySlot_RespectsConcurrencyLimit(t *testing.T) {
	m := newTestManager(t, 1)

	assert.True(t, m.AcquireTelephonySlot())
	assert.Equal(t, 1, m.Count())

	assert.False(t, m.AcquireTelephonySlot())

	m.ReleaseTelephonySlot()
	assert.Equal(t, 0, m.Count())
	assert.True(t, m.AcquireTelephonySlot())
	m.ReleaseTelephonySlot()
}

func TestManager_TelephonySlotAndWebRTCSessions_ShareOneConcurrencyPool(t *testing.T) {
	m := newTestManager(t, 1)

	require.True(t, m.AcquireTelephonySlot())

	_, _, err := m.HandleOffer(minimalOfferSDP, newNoopHandler)
	assert.Error(t, err, "a live telephony bridge should count against the WebRTC concurrency cap")

	m.ReleaseTelephonySlot()

	_, id, err := m.HandleOffer(minimalOfferSDP, newNoopHandler)
	require.NoError(t, err)
	assert.False(t, m.AcquireTelephonySlot(), "a live WebRTC session should count against the telephony concurrency cap")

	m.CleanUp(id)
}

func TestManager_WaitForTimeLimit_ClosesPeerConnectionAfterDeadline(t *testing.T) {
	m := newTestManager(t, 0)

	_, id, err := m.HandleOffer(minimalOfferSDP, newNoopHandler)
	require.NoError(t, err)
	sess, ok := m.Get(id)
	require.True(t, ok)

	m.timeLimit = 20 * time.Millisecond
	go m.waitForTimeLimit(sess)

	require.Eventually(t, func() bool {
		return sess.PC.ConnectionState().String() == "closed"
	}, time.Second, 10*time.Millisecond)

	m.CleanUp(id)
}
