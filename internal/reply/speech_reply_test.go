// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package reply

import (
	"errors"
	"testing"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/tts"
	"github.com/fastrtc/fastrtc-go/internal/vad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) TranscribeChunks(audio []int16, sampleRate int, chunks []vad.SpeechChunk) (string, error) {
	return f.text, f.err
}

type fakeSynth struct {
	lastText string
	chunks   [][]int16
	err      error
}

func (f *fakeSynth) Synthesize(sampleRate int, text string) (tts.Stream, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return &scriptedStream{sampleRate: sampleRate, chunks: f.chunks}, nil
}

type scriptedStream struct {
	sampleRate int
	chunks     [][]int16
	idx        int
}

func (s *scriptedStream) Next() (*media.AudioFrame, bool, error) {
	if s.idx >= len(s.chunks) {
		return nil, true, nil
	}
	c := s.chunks[s.idx]
	s.idx++
	return &media.AudioFrame{SampleRate: s.sampleRate, Samples: c, Layout: media.LayoutMono}, false, nil
}

func TestNewSpeechReplyFunc_TranscribesAndSynthesizesReply(t *testing.T) {
	transcriber := &fakeTranscriber{text: "hello there"}
	synth := &fakeSynth{chunks: [][]int16{{1, 2}, {3, 4}}}
	vadModel := &EnergyStub{}

	fn := NewSpeechReplyFunc(transcriber, synth, vadModel, vad.DefaultOptions(), func(transcript string) string {
		return "echo: " + transcript
	})

	gen := fn(16000, make([]int16, 100), nil)
	first, done, err := gen.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []int16{1, 2}, first.Audio.Samples)

	second, done, err := gen.Next()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, []int16{3, 4}, second.Audio.Samples)

	_, done, err = gen.Next()
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, "echo: hello there", synth.lastText)
}

func TestNewSpeechReplyFunc_PropagatesTranscriptionError(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("asr unavailable")}
	synth := &fakeSynth{}
	vadModel := &EnergyStub{}

	fn := NewSpeechReplyFunc(transcriber, synth, vadModel, vad.DefaultOptions(), func(transcript string) string { return transcript })
	gen := fn(16000, make([]int16, 100), nil)

	_, done, err := gen.Next()
	assert.True(t, done)
	assert.Error(t, err)
}

// EnergyStub is a VAD stand-in for these tests that treats the whole
// buffer as one speech chunk, since speech-chunk boundaries aren't under
// test here.
type EnergyStub struct{}

func (EnergyStub) Detect(sampleRate int, audio []int16, opts vad.Options) time.Duration { return 0 }

func (EnergyStub) DetectChunks(sampleRate int, audio []int16, opts vad.Options) []vad.SpeechChunk {
	return []vad.SpeechChunk{{StartSample: 0, EndSample: len(audio)}}
}
