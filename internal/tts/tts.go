// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tts models the text-to-speech boundary a reply generator draws
// from: a provider streams back synthesized audio chunks for a piece of
// text, the same streamed-chunk shape real TTS providers (Cartesia,
// Sarvam, ...) expose, collapsed to a single provider-agnostic interface
// since no concrete TTS provider SDK is in scope here.
package tts

import "github.com/fastrtc/fastrtc-go/internal/media"

// Stream yields synthesized audio chunks for one utterance, one chunk per
// call, until it reports done.
type Stream interface {
	Next() (chunk *media.AudioFrame, done bool, err error)
}

// Model turns text into a Stream, mirroring the `Synthesize`/`Stream`
// entry points real TTS providers expose.
type Model interface {
	Synthesize(sampleRate int, text string) (Stream, error)
}
