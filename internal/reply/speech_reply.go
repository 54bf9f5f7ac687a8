// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package reply

import (
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/stt"
	"github.com/fastrtc/fastrtc-go/internal/tts"
	"github.com/fastrtc/fastrtc-go/internal/vad"
)

// NewSpeechReplyFunc builds a ReplyFunc that transcribes the captured
// utterance, hands the transcript to a reply-text function, and streams
// the synthesized audio back through a tts.Model. This is the composition
// point a real deployment plugs its ASR/LLM/TTS stack into; the default
// binary wires the simpler echo generator instead (see cmd/fastrtcd).
func NewSpeechReplyFunc(sttModel stt.Model, ttsModel tts.Model, vadModel vad.Model, vadOpts vad.Options, replyText func(transcript string) string) ReplyFunc {
	return func(sampleRate int, audio []int16, args []interface{}) ReplyGenerator {
		chunks := vadModel.DetectChunks(sampleRate, audio, vadOpts)
		transcript, err := sttModel.TranscribeChunks(audio, sampleRate, chunks)
		if err != nil {
			return &errorGenerator{err: err}
		}

		text := replyText(transcript)
		stream, err := ttsModel.Synthesize(sampleRate, text)
		if err != nil {
			return &errorGenerator{err: err}
		}
		return &ttsGenerator{stream: stream}
	}
}

type ttsGenerator struct {
	stream tts.Stream
}

func (g *ttsGenerator) Next() (*handler.EmitResult, bool, error) {
	chunk, done, err := g.stream.Next()
	if err != nil || done {
		return nil, true, err
	}
	return &handler.EmitResult{Audio: chunk}, false, nil
}

type errorGenerator struct {
	err  error
	sent bool
}

func (g *errorGenerator) Next() (*handler.EmitResult, bool, error) {
	if g.sent {
		return nil, true, nil
	}
	g.sent = true
	return nil, true, g.err
}

var _ ReplyGenerator = (*ttsGenerator)(nil)
var _ ReplyGenerator = (*errorGenerator)(nil)
