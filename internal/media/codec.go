// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package media

import (
	"fmt"

	"layeh.com/gopus"
)

// OpusDecoder wraps a gopus decoder for a single inbound RTP stream. Each
// peer connection's remote track gets its own decoder so sequence/state is
// not shared across unrelated streams.
type OpusDecoder struct {
	dec *gopus.Decoder
}

// NewOpusDecoder creates a decoder for standard WebRTC Opus (48kHz, 2
// signaled channels per RFC 7587).
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(OpusSampleRate, OpusChannels)
	if err != nil {
		return nil, fmt.Errorf("media: create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec}, nil
}

// Decode decodes a single Opus packet into interleaved int16 PCM samples.
func (d *OpusDecoder) Decode(packet []byte) ([]int16, error) {
	pcm, err := d.dec.Decode(packet, OpusFrameSamples, false)
	if err != nil {
		return nil, fmt.Errorf("media: opus decode: %w", err)
	}
	return pcm, nil
}

// OpusEncoder wraps a gopus encoder for a single outbound track.
type OpusEncoder struct {
	enc *gopus.Encoder
}

// NewOpusEncoder creates an encoder tuned for voice (gopus.Audio) at the
// standard WebRTC Opus parameters.
func NewOpusEncoder() (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(OpusSampleRate, OpusChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("media: create opus encoder: %w", err)
	}
	return &OpusEncoder{enc: enc}, nil
}

// Encode encodes one 20ms frame of interleaved int16 PCM into an Opus
// packet. pcm must hold OpusFrameSamples*OpusChannels samples.
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	packet, err := e.enc.Encode(pcm, OpusFrameSamples, len(pcm)*2)
	if err != nil {
		return nil, fmt.Errorf("media: opus encode: %w", err)
	}
	return packet, nil
}

// MonoToStereo duplicates a mono int16 buffer into an interleaved stereo
// buffer, the layout Opus/WebRTC expects on the wire even for
// mono-sourced voice (stereo=0 is signaled via OpusSDPFmtpLine, but the
// RTP payload itself stays 2-channel per RFC 7587).
func MonoToStereo(mono []int16) []int16 {
	out := make([]int16, len(mono)*2)
	for i, s := range mono {
		out[2*i] = s
		out[2*i+1] = s
	}
	return out
}

// StereoToMono averages stereo int16 samples down to mono.
func StereoToMono(stereo []int16) []int16 {
	n := len(stereo) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return out
}
