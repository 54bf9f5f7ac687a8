// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package handler defines the stream handler contract that every audio
// pipeline (reply-on-pause, reply-on-stopwords, or a bespoke handler)
// implements, plus the shared base embedded by concrete handlers: the
// level-triggered args/channel gates, lazy resampler, and control-channel
// senders described in the pipeline design.
package handler

import (
	"sync"

	"github.com/fastrtc/fastrtc-go/internal/controlchannel"
	"github.com/fastrtc/fastrtc-go/internal/media"
)

// AdditionalOutputs carries side-channel values alongside (or instead of)
// emitted audio, delivered to the client as a "fetch_output" control
// message prompting it to pull them over the application's own output
// endpoint.
type AdditionalOutputs struct {
	Args []interface{}
}

// EmitResult is what Emit returns: audio (possibly nil, meaning "nothing to
// send this tick"), and/or additional side-channel outputs.
type EmitResult struct {
	Audio  *media.AudioFrame
	Extra  *AdditionalOutputs
}

// IsEmpty reports whether the result carries neither audio nor extras,
// equivalent to the Python API's bare `None` emit return.
func (r *EmitResult) IsEmpty() bool {
	return r == nil || (r.Audio == nil && r.Extra == nil)
}

// AudioHandler is the synchronous stream handler contract: Receive runs on
// a worker thread per inbound frame, Emit is polled once per outbound
// pacing tick.
type AudioHandler interface {
	// Receive is called with each inbound, already-resampled audio frame.
	Receive(frame media.AudioFrame)

	// Emit is polled by the outbound pacing loop. A nil result means
	// "nothing to send this tick"; the pacer does not advance its
	// wall-clock anchor when nothing is emitted.
	Emit() *EmitResult

	// Copy returns a fresh handler instance with the same configuration,
	// used to give each new peer connection its own handler state.
	Copy() AudioHandler

	// StartUp is run once by Session.Start on its own goroutine, alongside
	// the emit loop; it is not ordered after the data channel opens or
	// before the first Receive/Emit call, and the telephony bridge does
	// not call it. Base provides no default implementation.
	StartUp()

	Base() *Base
}

// AsyncAudioHandler declares the async variant's method set. Nothing in
// this module accepts it: the session manager, audio pipeline and
// telephony bridge all take an AudioHandler, so an AsyncAudioHandler is
// never dispatched.
type AsyncAudioHandler interface {
	Receive(frame media.AudioFrame)
	Emit() *EmitResult
	Copy() AsyncAudioHandler
	StartUp()
	Base() *Base
}

// Base is embedded by concrete handlers and supplies the args/channel
// gating, resampler, and control-channel helpers common to every handler,
// mirroring the shared state StreamHandlerBase holds in the original
// design: phone-mode bypass, a manual-reset "args are set" flag, and a
// manual-reset "channel is attached" flag.
type Base struct {
	mu sync.Mutex

	ExpectedLayout   media.Layout
	OutputSampleRate int
	OutputFrameSize  int
	InputSampleRate  int

	// PhoneMode skips the "wait for client args" handshake entirely,
	// since a telephony bridge has no SDP-negotiated data channel to
	// carry them over.
	PhoneMode bool

	latestArgs []interface{}
	argsSet    chan struct{}
	argsIsSet  bool

	channel    controlchannel.Channel
	channelSet chan struct{}
	channelIsSet bool

	resampler *media.Resampler
}

// NewBase constructs a Base with the given audio configuration.
func NewBase(cfg media.AudioConfig, phoneMode bool) *Base {
	return &Base{
		ExpectedLayout:   cfg.ExpectedLayout,
		OutputSampleRate: cfg.OutputSampleRate,
		OutputFrameSize:  cfg.OutputFrameSize,
		InputSampleRate:  cfg.InputSampleRate,
		PhoneMode:        phoneMode,
		argsSet:          make(chan struct{}),
		channelSet:       make(chan struct{}),
	}
}

// SetChannel attaches the control-data channel and releases any goroutine
// blocked in WaitForChannel. Safe to call once; later calls replace the
// channel without re-closing the already-closed gate.
func (b *Base) SetChannel(ch controlchannel.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channel = ch
	if !b.channelIsSet {
		b.channelIsSet = true
		close(b.channelSet)
	}
}

// Channel returns the currently attached control channel, or nil.
func (b *Base) Channel() controlchannel.Channel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.channel
}

// ChannelSet returns a channel that is closed once SetChannel has been
// called at least once.
func (b *Base) ChannelSet() <-chan struct{} {
	return b.channelSet
}

// FetchArgs asks the client to resend its current input arguments, by
// sending a "send_input" control message.
func (b *Base) FetchArgs() {
	if ch := b.Channel(); ch != nil {
		_ = ch.Send(controlchannel.Create(controlchannel.TypeSendInput, []interface{}{}))
	}
}

// SetArgs records the latest input arguments pushed by the client and
// releases any goroutine blocked in WaitForArgs.
func (b *Base) SetArgs(args []interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latestArgs = args
	if !b.argsIsSet {
		b.argsIsSet = true
		close(b.argsSet)
	}
}

// LatestArgs returns the most recently set input arguments.
func (b *Base) LatestArgs() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latestArgs
}

// WaitForArgs blocks until SetArgs has been called, unless PhoneMode is
// set, in which case it returns immediately (there is no client args
// handshake over a telephony bridge).
func (b *Base) WaitForArgs() <-chan struct{} {
	if b.PhoneMode {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	b.FetchArgs()
	return b.argsSet
}

// Reset clears the args-set gate (and, in phone mode, immediately
// re-opens it with a single nil argument) ready for the next turn. Used
// by the reply engines between conversational turns.
func (b *Base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.argsSet = make(chan struct{})
	b.argsIsSet = false
	if b.PhoneMode {
		b.latestArgs = []interface{}{nil}
		b.argsIsSet = true
		close(b.argsSet)
	}
}

// Resampler lazily builds the frame resampler on first use, mirroring the
// lazy av.AudioResampler instantiation: the destination shape (expected
// layout, input sample rate) is fixed at construction, but the source
// shape of the very first inbound frame is what's actually being
// converted from.
func (b *Base) Resampler(srcRate int, srcLayout media.Layout) *media.Resampler {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resampler == nil {
		b.resampler = media.NewResampler(srcRate, srcLayout, b.InputSampleRate, b.ExpectedLayout)
	}
	return b.resampler
}
