// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package reply

import (
	"regexp"
	"strings"
	"sync"

	"github.com/fastrtc/fastrtc-go/internal/controlchannel"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/stt"
	"github.com/fastrtc/fastrtc-go/internal/vad"
)

// stopwordsPostBufferSamples is the 2-second-at-16kHz cap on the rolling
// pre-wake-word transcription buffer.
const stopwordsPostBufferSamples = 32000

// stopwordsState extends State with the wake-word gating fields tracked
// before started_talking is allowed to latch.
type stopwordsState struct {
	State
	StopWordDetected           bool
	PostStopWordBuffer         []int16 // 16kHz mono, rolling 2s window
	StartedTalkingPreStopWord  bool
}

// OnStopWords wraps the pause-detection state machine with a wake-word
// gate: started_talking (and therefore any reply) cannot latch until one
// of the configured stop words has been heard.
type OnStopWords struct {
	base *handler.Base

	fn          ReplyFunc
	stopWords   [][]string // each word split on whitespace, lowercased
	stopWordRe  []*regexp.Regexp
	algoOptions AlgoOptions
	vadModel    vad.Model
	vadOptions  vad.Options
	sttModel    stt.Model
	needsArgs   bool

	mu          sync.Mutex
	state       stopwordsState
	pauseHit    bool
	generator   ReplyGenerator
	sttResample *media.Resampler // lazily built once the source rate is known
}

// NewOnStopWords builds a ReplyOnStopWords handler. stopWords are matched
// case-insensitively, word-boundary delimited, tolerant of trailing
// punctuation, exactly as the reference regex does.
func NewOnStopWords(fn ReplyFunc, stopWords []string, algoOptions AlgoOptions, vadModel vad.Model, vadOptions vad.Options, sttModel stt.Model, cfg media.AudioConfig, phoneMode, needsAdditionalArgs bool) *OnStopWords {
	o := &OnStopWords{
		fn:          fn,
		algoOptions: algoOptions,
		vadModel:    vadModel,
		vadOptions:  vadOptions,
		sttModel:    sttModel,
		needsArgs:   needsAdditionalArgs,
		base:        handler.NewBase(cfg, phoneMode),
	}
	for _, w := range stopWords {
		words := strings.Fields(strings.ToLower(strings.TrimSpace(w)))
		if len(words) == 0 {
			continue
		}
		o.stopWords = append(o.stopWords, words)
		escaped := make([]string, len(words))
		for i, part := range words {
			escaped[i] = regexp.QuoteMeta(part)
		}
		o.stopWordRe = append(o.stopWordRe, regexp.MustCompile(`\b`+strings.Join(escaped, `\s+`)+`[.,!?]*\b`))
	}
	return o
}

func (o *OnStopWords) Base() *handler.Base { return o.base }

func (o *OnStopWords) Copy() handler.AudioHandler {
	words := make([]string, len(o.stopWords))
	for i, w := range o.stopWords {
		words[i] = strings.Join(w, " ")
	}
	return NewOnStopWords(o.fn, words, o.algoOptions, o.vadModel, o.vadOptions, o.sttModel, media.AudioConfig{
		InputSampleRate:  o.base.InputSampleRate,
		OutputSampleRate: o.base.OutputSampleRate,
		OutputFrameSize:  o.base.OutputFrameSize,
		ExpectedLayout:   o.base.ExpectedLayout,
	}, o.base.PhoneMode, o.needsArgs)
}

func (o *OnStopWords) StartUp() {}

func (o *OnStopWords) matchesStopWord(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range o.stopWordRe {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

func (o *OnStopWords) sendStopword() {
	if ch := o.base.Channel(); ch != nil {
		_ = ch.Send(controlchannel.Create(controlchannel.TypeStopword, ""))
	}
}

// determinePause first hunts for a stop word in a rolling 2-second,
// 16kHz transcription buffer; only once one is heard does it fall
// through to the ordinary pause-detection VAD logic from OnPause.
func (o *OnStopWords) determinePause(audio []int16, sampleRate int, st *stopwordsState) bool {
	duration := float64(len(audio)) / float64(sampleRate)
	if duration < o.algoOptions.AudioChunkDuration.Seconds() {
		return false
	}

	if !st.StopWordDetected {
		if o.sttResample == nil {
			o.sttResample = media.NewResampler(sampleRate, media.LayoutMono, 16000, media.LayoutMono)
		}
		resampled := o.sttResample.Process(audio)
		st.PostStopWordBuffer = append(st.PostStopWordBuffer, resampled...)
		if len(st.PostStopWordBuffer) > stopwordsPostBufferSamples {
			st.PostStopWordBuffer = st.PostStopWordBuffer[len(st.PostStopWordBuffer)-stopwordsPostBufferSamples:]
		}

		chunks := o.vadModel.DetectChunks(16000, st.PostStopWordBuffer, o.vadOptions)
		text, err := o.sttModel.TranscribeChunks(st.PostStopWordBuffer, 16000, chunks)
		if err == nil && o.matchesStopWord(text) {
			st.StopWordDetected = true
			o.sendStopword()
		}
		st.Buffer = nil
		return false
	}

	speechDur := o.vadModel.Detect(sampleRate, audio, o.vadOptions)
	if speechDur > o.algoOptions.StartedTalkingThreshold && !st.StartedTalking {
		st.StartedTalking = true
	}
	if st.StartedTalking {
		st.Stream = append(st.Stream, audio...)
	}
	st.Buffer = nil

	return speechDur < o.algoOptions.SpeechThreshold && st.StartedTalking && st.StopWordDetected
}

// Receive delegates to the wake-word-gated pause detector; half-duplex
// during an in-flight reply, same as OnPause.
func (o *OnStopWords) Receive(frame media.AudioFrame) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Responding {
		return
	}
	if o.state.SamplingRate == 0 {
		o.state.SamplingRate = frame.SampleRate
	}
	o.state.Buffer = append(o.state.Buffer, frame.Samples...)
	o.state.PauseDetected = o.determinePause(o.state.Buffer, o.state.SamplingRate, &o.state)
	if o.state.PauseDetected {
		o.pauseHit = true
	}
}

func (o *OnStopWords) reset() {
	o.base.Reset()
	o.generator = nil
	o.pauseHit = false
	o.state = stopwordsState{}
}

// Emit mirrors OnPause.Emit exactly; the wake-word gate only changes
// when PauseDetected can ever become true, not how a detected pause is
// turned into a reply.
func (o *OnStopWords) Emit() *handler.EmitResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.pauseHit {
		return nil
	}

	if o.generator == nil {
		_ = controlchannel.Log(o.base.Channel(), "pause_detected")

		var args []interface{}
		if o.needsArgs {
			<-o.base.WaitForArgs()
			args = o.base.LatestArgs()
		}

		o.generator = o.fn(o.state.SamplingRate, o.state.Stream, args)
		o.state.Responding = true
	}

	out, done, err := o.generator.Next()
	if err != nil || done {
		if err != nil {
			_ = controlchannel.SendError(o.base.Channel(), err.Error())
		} else if !o.state.RespondedAudio {
			_ = controlchannel.Log(o.base.Channel(), "response_starting")
		}
		o.reset()
		return nil
	}

	if out != nil && out.Audio != nil && !o.state.RespondedAudio {
		_ = controlchannel.Log(o.base.Channel(), "response_starting")
		o.state.RespondedAudio = true
	}
	return out
}

var _ handler.AudioHandler = (*OnStopWords)(nil)
