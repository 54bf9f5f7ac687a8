// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package vad models the voice-activity-detection boundary the reply
// engines sit behind. The actual model (Silero VAD, run via onnxruntime in
// the reference implementation) is an external inference runtime outside
// this module's scope; Model is the seam a real binding would implement.
package vad

import "time"

// Options mirrors the Silero VAD tuning knobs the reply engines pass
// through on every call.
type Options struct {
	Threshold            float64
	MinSpeechDuration     time.Duration
	MaxSpeechDuration     time.Duration
	MinSilenceDuration    time.Duration
	WindowSizeSamples     int
	SpeechPadDuration     time.Duration
}

// DefaultOptions matches SileroVadOptions' defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:          0.5,
		MinSpeechDuration:  250 * time.Millisecond,
		MaxSpeechDuration:  0, // zero means unbounded
		MinSilenceDuration: 2000 * time.Millisecond,
		WindowSizeSamples:  1024,
		SpeechPadDuration:  400 * time.Millisecond,
	}
}

// SpeechChunk is a detected speech region, start/end as sample offsets
// into the analyzed buffer.
type SpeechChunk struct {
	StartSample int
	EndSample   int
}

// Model is the voice-activity-detection contract: given a sample rate and
// a buffer of int16 PCM, return the total duration of detected speech.
// DetectChunks additionally returns the individual speech regions, used
// by the stopwords engine to select which audio to transcribe.
type Model interface {
	// Detect returns the total speech duration found in audio.
	Detect(sampleRate int, audio []int16, opts Options) time.Duration

	// DetectChunks returns the individual speech regions found in audio.
	DetectChunks(sampleRate int, audio []int16, opts Options) []SpeechChunk
}
