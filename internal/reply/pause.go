// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package reply implements the pause-triggered turn-taking engines:
// ReplyOnPause watches an inbound audio stream for a VAD-detected pause
// after speech and then drives a caller-supplied reply generator;
// ReplyOnStopWords adds a wake-word gate in front of the same state
// machine.
package reply

import (
	"sync"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/controlchannel"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/vad"
)

// AlgoOptions tunes the pause-detection algorithm.
type AlgoOptions struct {
	// AudioChunkDuration is the minimum buffered duration before a VAD
	// pass is run at all.
	AudioChunkDuration time.Duration
	// StartedTalkingThreshold is the speech duration within a chunk that
	// flips started_talking on.
	StartedTalkingThreshold time.Duration
	// SpeechThreshold is the speech duration below which, once talking
	// has started, a pause is declared.
	SpeechThreshold time.Duration
}

// DefaultAlgoOptions mirrors the reference defaults: 0.6s chunks, 0.2s to
// start, 0.1s of silence to call it a pause.
func DefaultAlgoOptions() AlgoOptions {
	return AlgoOptions{
		AudioChunkDuration:      600 * time.Millisecond,
		StartedTalkingThreshold: 200 * time.Millisecond,
		SpeechThreshold:         100 * time.Millisecond,
	}
}

// State is the per-turn state tracked across Receive calls, reset once a
// reply finishes.
type State struct {
	Stream          []int16
	SamplingRate    int
	PauseDetected   bool
	StartedTalking  bool
	Responding      bool
	Stopped         bool
	Buffer          []int16
	RespondedAudio  bool
}

// ReplyFunc is the caller-supplied reply generator: given the captured
// utterance (sample rate and mono int16 samples) and any additional
// client-supplied arguments, it is invoked once per turn and Next is
// polled repeatedly until it reports done.
type ReplyFunc func(sampleRate int, audio []int16, args []interface{}) ReplyGenerator

// ReplyGenerator is a single turn's reply stream: Next is called once per
// Emit tick and returns the next chunk of output, or done=true once the
// generator is exhausted.
type ReplyGenerator interface {
	Next() (out *handler.EmitResult, done bool, err error)
}

// OnPause is a synchronous stream handler: it buffers inbound audio,
// runs VAD to find the end of an utterance, and on pause detection calls
// fn to produce the reply.
type OnPause struct {
	base *handler.Base

	fn           ReplyFunc
	algoOptions  AlgoOptions
	vadModel     vad.Model
	vadOptions   vad.Options
	needsArgs    bool

	mu        sync.Mutex
	state     State
	pauseHit  bool
	generator ReplyGenerator
}

// NewOnPause builds a ReplyOnPause handler. needsAdditionalArgs mirrors
// the Python implementation's inspection of fn's parameter count: set it
// true when fn consumes client-supplied arguments beyond the audio.
func NewOnPause(fn ReplyFunc, algoOptions AlgoOptions, vadModel vad.Model, vadOptions vad.Options, cfg media.AudioConfig, phoneMode, needsAdditionalArgs bool) *OnPause {
	return &OnPause{
		base:        handler.NewBase(cfg, phoneMode),
		fn:          fn,
		algoOptions: algoOptions,
		vadModel:    vadModel,
		vadOptions:  vadOptions,
		needsArgs:   needsAdditionalArgs,
	}
}

func (p *OnPause) Base() *handler.Base { return p.base }

// Copy returns a fresh OnPause with the same configuration and a clean
// per-turn state, one per new peer connection.
func (p *OnPause) Copy() handler.AudioHandler {
	return NewOnPause(p.fn, p.algoOptions, p.vadModel, p.vadOptions, media.AudioConfig{
		InputSampleRate:  p.base.InputSampleRate,
		OutputSampleRate: p.base.OutputSampleRate,
		OutputFrameSize:  p.base.OutputFrameSize,
		ExpectedLayout:   p.base.ExpectedLayout,
	}, p.base.PhoneMode, p.needsArgs)
}

func (p *OnPause) StartUp() {}

// determinePause appends newly-buffered audio to the utterance stream
// once talking has started, and reports whether a pause has just been
// detected.
func (p *OnPause) determinePause(audio []int16, sampleRate int, st *State) bool {
	duration := time.Duration(float64(len(audio)) / float64(sampleRate) * float64(time.Second))
	if duration < p.algoOptions.AudioChunkDuration {
		return false
	}

	speechDur := p.vadModel.Detect(sampleRate, audio, p.vadOptions)

	if speechDur > p.algoOptions.StartedTalkingThreshold && !st.StartedTalking {
		st.StartedTalking = true
	}
	if st.StartedTalking {
		st.Stream = append(st.Stream, audio...)
	}
	st.Buffer = nil

	return speechDur < p.algoOptions.SpeechThreshold && st.StartedTalking
}

func (p *OnPause) processAudio(frame media.AudioFrame, st *State) {
	if st.SamplingRate == 0 {
		st.SamplingRate = frame.SampleRate
	}
	st.Buffer = append(st.Buffer, frame.Samples...)
	st.PauseDetected = p.determinePause(st.Buffer, st.SamplingRate, st)
}

// Receive buffers inbound audio and flags a pause once detected. A
// receive arriving while a reply is in flight is dropped: the engine is
// half-duplex during a turn.
func (p *OnPause) Receive(frame media.AudioFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Responding {
		return
	}
	p.processAudio(frame, &p.state)
	if p.state.PauseDetected {
		p.pauseHit = true
	}
}

// reset clears per-turn state, re-arming phone-mode's args gate as the
// reference implementation does.
func (p *OnPause) reset() {
	p.base.Reset()
	p.generator = nil
	p.pauseHit = false
	p.state = State{}
}

// Emit polls the in-flight reply generator, starting one the first time
// a pause has been detected. A nil result (no pause yet, or nothing new
// this tick) tells the pacer not to advance.
func (p *OnPause) Emit() *handler.EmitResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.pauseHit {
		return nil
	}

	if p.generator == nil {
		_ = controlchannel.Log(p.base.Channel(), "pause_detected")

		var args []interface{}
		if p.needsArgs {
			<-p.base.WaitForArgs()
			args = p.base.LatestArgs()
		}

		audio := p.state.Stream
		p.generator = p.fn(p.state.SamplingRate, audio, args)
		p.state.Responding = true
	}

	out, done, err := p.generator.Next()
	if err != nil || done {
		if err != nil {
			_ = controlchannel.SendError(p.base.Channel(), err.Error())
		} else if !p.state.RespondedAudio {
			_ = controlchannel.Log(p.base.Channel(), "response_starting")
		}
		p.reset()
		return nil
	}

	if out != nil && out.Audio != nil && !p.state.RespondedAudio {
		_ = controlchannel.Log(p.base.Channel(), "response_starting")
		p.state.RespondedAudio = true
	}
	return out
}

var _ handler.AudioHandler = (*OnPause)(nil)
