// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package stt models the speech-to-text boundary used by the stopwords
// engine to transcribe only the speech chunks a VAD pass already found,
// rather than running a full streaming ASR pipeline (out of scope).
package stt

import "github.com/fastrtc/fastrtc-go/internal/vad"

// Model transcribes a fixed set of pre-identified speech chunks out of a
// mono buffer at the given sample rate (16kHz from the stopwords engine,
// the utterance's own rate from NewSpeechReplyFunc), mirroring
// stt_model.stt_for_chunks in the reference wake-word detector.
type Model interface {
	TranscribeChunks(audio []int16, sampleRate int, chunks []vad.SpeechChunk) (string, error)
}
