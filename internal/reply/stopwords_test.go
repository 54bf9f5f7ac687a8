// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package reply

import (
	"testing"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/vad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) TranscribeChunks(audio []int16, sampleRate int, chunks []vad.SpeechChunk) (string, error) {
	return f.text, f.err
}

func newTestOnStopWords(t *testing.T, fv *fakeVAD, stt *fakeSTT, words []string, fn ReplyFunc) *OnStopWords {
	t.Helper()
	return NewOnStopWords(fn, words, DefaultAlgoOptions(), fv, vad.DefaultOptions(), stt, media.DefaultAudioConfig(), true, false)
}

func TestOnStopWords_NoReplyWithoutWakeWord(t *testing.T) {
	fv := &fakeVAD{durations: []time.Duration{300 * time.Millisecond, 50 * time.Millisecond}}
	stt := &fakeSTT{text: "just background chatter"}
	var called bool
	o := newTestOnStopWords(t, fv, stt, []string{"hey assistant"}, func(sampleRate int, audio []int16, args []interface{}) ReplyGenerator {
		called = true
		return &scriptedGenerator{}
	})

	o.Receive(silentFrame(48000, 48000))
	o.Receive(silentFrame(48000, 48000))

	assert.Nil(t, o.Emit())
	assert.False(t, called, "no reply should be generated before the wake word is heard")
}

func TestOnStopWords_MatchesWakeWordCaseInsensitiveWithPunctuation(t *testing.T) {
	stt := &fakeSTT{text: "okay, Hey Assistant! can you help"}
	o := newTestOnStopWords(t, &fakeVAD{}, stt, []string{"hey assistant"}, nil)

	assert.True(t, o.matchesStopWord(stt.text))
}

func TestOnStopWords_RepliesOncePastStopWord(t *testing.T) {
	// First chunk detects the stop word; subsequent chunks drive the
	// ordinary started-talking/pause logic.
	fv := &fakeVAD{durations: []time.Duration{300 * time.Millisecond, 50 * time.Millisecond}}
	stt := &fakeSTT{text: "hey assistant"}
	var called bool
	o := newTestOnStopWords(t, fv, stt, []string{"hey assistant"}, func(sampleRate int, audio []int16, args []interface{}) ReplyGenerator {
		called = true
		return &scriptedGenerator{outputs: []*handler.EmitResult{
			{Audio: &media.AudioFrame{SampleRate: 24000, Samples: []int16{7}}},
		}}
	})

	o.Receive(silentFrame(48000, 48000)) // stop word detection pass
	require.True(t, o.state.StopWordDetected)

	o.Receive(silentFrame(48000, 48000)) // starts talking
	o.Receive(silentFrame(48000, 48000)) // pause

	result := o.Emit()
	require.NotNil(t, result)
	assert.True(t, called)
}

func TestOnStopWords_GeneratorError_SendsErrorNotResponseStarting(t *testing.T) {
	fv := &fakeVAD{durations: []time.Duration{300 * time.Millisecond, 50 * time.Millisecond}}
	stt := &fakeSTT{text: "hey assistant"}
	o := newTestOnStopWords(t, fv, stt, []string{"hey assistant"}, func(sampleRate int, audio []int16, args []interface{}) ReplyGenerator {
		return erroringGenerator{}
	})
	ch := &recordingChannel{}
	o.base.SetChannel(ch)

	o.Receive(silentFrame(48000, 48000)) // stop word detection pass
	require.True(t, o.state.StopWordDetected)
	o.Receive(silentFrame(48000, 48000)) // starts talking
	o.Receive(silentFrame(48000, 48000)) // pause

	assert.Nil(t, o.Emit())

	for _, msg := range ch.sent {
		assert.NotContains(t, msg, "response_starting", "a handler error must never be reported as response_starting")
	}
	require.NotEmpty(t, ch.sent)
	assert.Contains(t, ch.sent[len(ch.sent)-1], `"type":"error"`)
}
