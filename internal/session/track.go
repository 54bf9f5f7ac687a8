// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package session

import (
	"errors"
	"io"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// createLocalAudioTrack adds an outbound Opus track to the peer connection
// before the answer is generated: AddTrack must run before CreateAnswer
// for the track to appear in the negotiated SDP.
func createLocalAudioTrack(pc *webrtc.PeerConnection) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: media.OpusSampleRate,
			Channels:  media.OpusChannels,
		},
		"audio",
		"fastrtc-audio",
	)
	if err != nil {
		return nil, err
	}
	if _, err := pc.AddTrack(track); err != nil {
		return nil, err
	}
	return track, nil
}

// attachRemoteTrackHandlers wires inbound audio (decode+dispatch to the
// pipeline) and inbound video (RTCP PLI keepalive only — full
// codec-specific depacketization is out of this module's scope, see the
// design ledger). Runs once per session, registered before SetRemoteDescription.
func (m *Manager) attachRemoteTrackHandlers(sess *Session) {
	sess.PC.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		switch track.Kind() {
		case webrtc.RTPCodecTypeAudio:
			m.logger.Infow("remote audio track received", "session_id", sess.ID, "codec", track.Codec().MimeType)
			go m.readRemoteAudio(sess, track)
		case webrtc.RTPCodecTypeVideo:
			m.logger.Infow("remote video track received", "session_id", sess.ID, "codec", track.Codec().MimeType)
			go keepVideoKeyframesFlowing(sess, track)
		}
	})
}

// readRemoteAudio reads RTP packets off the remote track, decodes Opus to
// PCM, and hands the frame to the session's audio pipeline. Uses a bounded
// consecutive-error counter instead of tearing the session down on the
// first transient read error.
func (m *Manager) readRemoteAudio(sess *Session, track *webrtc.TrackRemote) {
	if track.Codec().MimeType != webrtc.MimeTypeOpus {
		m.logger.Errorw("unsupported inbound codec, only Opus is supported", "session_id", sess.ID, "codec", track.Codec().MimeType)
		return
	}

	dec, err := media.NewOpusDecoder()
	if err != nil {
		m.logger.Errorw("failed to create opus decoder", "session_id", sess.ID, "error", err)
		return
	}

	buf := make([]byte, media.RTPBufferSize)
	consecutiveErrors := 0

	for {
		select {
		case <-sess.Context().Done():
			return
		default:
		}

		n, _, err := track.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			consecutiveErrors++
			if consecutiveErrors >= media.MaxConsecutiveErrors {
				m.logger.Errorw("too many consecutive audio read errors, stopping reader", "session_id", sess.ID, "error", err)
				return
			}
			continue
		}
		consecutiveErrors = 0

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			m.logger.Debugw("failed to unmarshal inbound RTP packet", "session_id", sess.ID, "error", err)
			continue
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		pcm, err := dec.Decode(pkt.Payload)
		if err != nil {
			m.logger.Debugw("opus decode failed", "session_id", sess.ID, "error", err)
			continue
		}

		sess.Pipeline.Receive(sess.Context(), media.AudioFrame{
			SampleRate: media.OpusSampleRate,
			Samples:    pcm,
			Layout:     media.LayoutStereo,
		})
	}
}

// keepVideoKeyframesFlowing periodically asks the sender for a fresh
// keyframe via RTCP PLI, so a video track recovers cleanly after packet
// loss even though this module doesn't decode/transform video frames
// itself (the Non-goal on codec implementation applies to video the same
// way it does audio).
func keepVideoKeyframesFlowing(sess *Session, track *webrtc.TrackRemote) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Context().Done():
			return
		case <-ticker.C:
			_ = sess.PC.WriteRTCP([]rtcp.Packet{
				&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
			})
		}
	}
}

// opusFrameInterleavedSamples is the exact sample count (two channels
// worth) the Opus encoder must be handed per call: OpusFrameSamples per
// channel at 48kHz stereo.
const opusFrameInterleavedSamples = media.OpusFrameSamples * media.OpusChannels

// outboundAudioBuffer normalizes whatever sample rate/layout a handler's
// Emit produced into the fixed 48kHz stereo, OpusFrameSamples-per-channel
// shape the outbound encoder requires, the same normalize-then-encode
// step internal/telephony's sendAudio performs before mu-law encoding.
// The resampler is rebuilt if the source rate/layout ever changes.
type outboundAudioBuffer struct {
	enc       *media.OpusEncoder
	resampler *media.Resampler
	srcRate   int
	srcLayout media.Layout
	pending   []int16 // interleaved 48kHz stereo samples awaiting a full frame
}

func newOutboundAudioBuffer() (*outboundAudioBuffer, error) {
	enc, err := media.NewOpusEncoder()
	if err != nil {
		return nil, err
	}
	return &outboundAudioBuffer{enc: enc}, nil
}

// push resamples frame to 48kHz stereo, appends it to the pending buffer,
// and flushes every complete Opus frame it can assemble to track.
func (b *outboundAudioBuffer) push(track *webrtc.TrackLocalStaticSample, frame *media.AudioFrame) error {
	if b.resampler == nil || b.srcRate != frame.SampleRate || b.srcLayout != frame.Layout {
		b.resampler = media.NewResampler(frame.SampleRate, frame.Layout, media.OpusSampleRate, media.LayoutStereo)
		b.srcRate = frame.SampleRate
		b.srcLayout = frame.Layout
	}
	if resampled := b.resampler.Process(frame.Samples); len(resampled) > 0 {
		b.pending = append(b.pending, resampled...)
	}

	for len(b.pending) >= opusFrameInterleavedSamples {
		if err := writeAudioFrame(track, b.enc, b.pending[:opusFrameInterleavedSamples]); err != nil {
			return err
		}
		remaining := copy(b.pending, b.pending[opusFrameInterleavedSamples:])
		b.pending = b.pending[:remaining]
	}
	return nil
}

// writeAudioFrame Opus-encodes one fixed-size 48kHz stereo PCM frame and
// writes it to the outbound track. pcm must hold exactly
// opusFrameInterleavedSamples samples.
func writeAudioFrame(track *webrtc.TrackLocalStaticSample, enc *media.OpusEncoder, pcm []int16) error {
	packet, err := enc.Encode(pcm)
	if err != nil {
		return err
	}
	return track.WriteSample(pionmedia.Sample{Data: packet, Duration: media.OpusFrameDuration})
}
