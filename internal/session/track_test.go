// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import (
	"testing"

	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/peerconn"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestCreateLocalAudioTrack_AddsOpusTrack(t *testing.T) {
	factory, err := peerconn.NewFactory(peerconn.Config{})
	require.NoError(t, err)
	pc, err := factory.NewPeerConnection()
	require.NoError(t, err)
	defer pc.Close()

	track, err := createLocalAudioTrack(pc)
	require.NoError(t, err)
	require.NotNil(t, track)
	require.Equal(t, webrtc.MimeTypeOpus, track.Codec().MimeType)
}

func TestWriteAudioFrame_EncodesFixedSizeStereoFrameAndWrites(t *testing.T) {
	factory, err := peerconn.NewFactory(peerconn.Config{})
	require.NoError(t, err)
	pc, err := factory.NewPeerConnection()
	require.NoError(t, err)
	defer pc.Close()

	track, err := createLocalAudioTrack(pc)
	require.NoError(t, err)

	enc, err := media.NewOpusEncoder()
	require.NoError(t, err)

	pcm := make([]int16, opusFrameInterleavedSamples)

	// No remote peer is attached to consume samples in this unit test, so
	// WriteSample's only observable failure mode here is an encode error.
	err = writeAudioFrame(track, enc, pcm)
	require.NoError(t, err)
}

func TestOutboundAudioBuffer_ResamplesAndReframesBeforeEncoding(t *testing.T) {
	factory, err := peerconn.NewFactory(peerconn.Config{})
	require.NoError(t, err)
	pc, err := factory.NewPeerConnection()
	require.NoError(t, err)
	defer pc.Close()

	track, err := createLocalAudioTrack(pc)
	require.NoError(t, err)

	buf, err := newOutboundAudioBuffer()
	require.NoError(t, err)

	// A handler emitting at the default 24kHz output rate in mono,
	// 480-sample (20ms) chunks, gives half the samples-per-channel a 48kHz
	// encoder call expects,
	// and the wrong rate and layout besides. Feeding several such chunks
	// must still only ever reach the encoder with full 48kHz stereo
	// frames, proven here by pushing enough chunks to guarantee at least
	// one frame is assembled and written without error.
	frame := &media.AudioFrame{
		SampleRate: 24000,
		Samples:    make([]int16, 480),
		Layout:     media.LayoutMono,
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, buf.push(track, frame))
	}
	require.Less(t, len(buf.pending), opusFrameInterleavedSamples, "at least one full frame should have been flushed")
}
