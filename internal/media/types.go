// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package media holds the audio constants, sample buffer types, and codec
// and resampler adapters shared by the audio and video pipelines.
package media

import "time"

// Opus / RTP constants (WebRTC standard: 48kHz stereo signaling).
const (
	OpusSampleRate    = 48000
	OpusFrameDuration = 20 * time.Millisecond
	OpusFrameSamples  = 960 // samples per channel per 20ms frame at 48kHz
	OpusChannels      = 2   // opus/48000/2 per RFC 7587, even for mono voice
	OpusPayloadType   = 111
	OpusSDPFmtpLine   = "minptime=10;useinbandfec=1;stereo=0;sprop-stereo=0"
)

// Channel and buffer sizing shared by the session/pipeline layer.
const (
	InputChannelSize     = 500
	OutputChannelSize    = 1500
	InputBufferThreshold = 3200
	RTPBufferSize        = 1500
	MaxConsecutiveErrors = 50
)

// Layout describes the channel layout fastrtc reasons about. Stream
// handlers are written against "mono" or "stereo" and the resampler/codec
// layers convert to/from the wire format accordingly.
type Layout string

const (
	LayoutMono   Layout = "mono"
	LayoutStereo Layout = "stereo"
)

// AudioFrame is a decoded PCM frame: SampleRate in Hz and Samples holding
// interleaved int16 samples (mono: one sample per frame tick, stereo:
// L,R,L,R...).
type AudioFrame struct {
	SampleRate int
	Samples    []int16
	Layout     Layout
}

// AudioConfig describes the sample rate / frame size a stream handler
// expects on emit, mirroring output_sample_rate/output_frame_size/
// input_sample_rate in the stream handler contract.
type AudioConfig struct {
	InputSampleRate  int
	OutputSampleRate int
	OutputFrameSize  int
	ExpectedLayout   Layout
}

// DefaultAudioConfig matches the stream handler defaults: 48kHz mono in,
// 24kHz mono out, 480-sample (20ms @ 24kHz) output frames.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		InputSampleRate:  48000,
		OutputSampleRate: 24000,
		OutputFrameSize:  480,
		ExpectedLayout:   LayoutMono,
	}
}
