// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pipeline drives a stream handler's Receive/Emit calls against
// real inbound/outbound audio: dispatching inbound frames to worker
// goroutines (only handler.AudioHandler is accepted; there is no separate
// path for handler.AsyncAudioHandler), and pacing
// outbound frames to wall-clock so bursts of generated audio play back
// at 1x speed instead of flooding the client.
package pipeline

import (
	"context"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/controlchannel"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// inboundWorkerLimit caps the number of concurrent synchronous Receive
// calls dispatched to worker goroutines, mirroring anyio.to_thread's
// default worker thread cap.
const inboundWorkerLimit = 40

// OutputFrame is one paced emit result ready to hand to the track writer:
// audio and/or additional outputs. It carries no timestamp of its own.
type OutputFrame struct {
	Audio *media.AudioFrame
	Extra *handler.AdditionalOutputs
}

// AudioPipeline wires a stream handler to a raw inbound frame source and
// produces a paced outbound frame stream.
type AudioPipeline struct {
	h      handler.AudioHandler
	logger logging.Logger
	sem    *semaphore.Weighted

	outCh chan OutputFrame

	// pacing state
	start         *time.Time
	lastTimestamp time.Time
	mediaClock    time.Duration // cumulative declared media time emitted so far

	// pollLimiter throttles how often an idle Emit() (nothing to send yet)
	// is retried, so a handler with nothing queued doesn't spin the loop.
	pollLimiter *rate.Limiter
}

// NewAudioPipeline builds a pipeline around h. outputBuffer sizes the
// internal paced-output channel.
func NewAudioPipeline(h handler.AudioHandler, logger logging.Logger, outputBuffer int) *AudioPipeline {
	if outputBuffer <= 0 {
		outputBuffer = media.OutputChannelSize
	}
	return &AudioPipeline{
		h:      h,
		logger: logger,
		sem:    semaphore.NewWeighted(inboundWorkerLimit),
		outCh:  make(chan OutputFrame, outputBuffer),
	}
}

// Output returns the channel of paced outbound frames.
func (p *AudioPipeline) Output() <-chan OutputFrame {
	return p.outCh
}

// Receive resamples and dispatches one inbound frame to the handler. The
// dispatch runs on its own goroutine, bounded by a semaphore, so a slow
// synchronous handler cannot stall the caller (the track reader loop).
func (p *AudioPipeline) Receive(ctx context.Context, raw media.AudioFrame) {
	base := p.h.Base()
	resampler := base.Resampler(raw.SampleRate, raw.Layout)
	resampled := resampler.Process(raw.Samples)
	if len(resampled) == 0 {
		return
	}
	frame := media.AudioFrame{
		SampleRate: base.InputSampleRate,
		Samples:    resampled,
		Layout:     base.ExpectedLayout,
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	go func() {
		defer p.sem.Release(1)
		p.h.Receive(frame)
	}()
}

// RunEmitLoop polls the handler's Emit once per output frame duration
// until ctx is cancelled, pushing results onto Output with wall-clock
// pacing: the first emitted frame establishes the playback anchor, and
// subsequent frames sleep until their declared media time (the summed
// sample durations of the audio emitted before them) has actually
// elapsed. A gap of more than 10 frame-durations since the last emit
// resets the anchor, so a handler that stalls and resumes doesn't try to
// instantly replay a queue's worth of backlog.
func (p *AudioPipeline) RunEmitLoop(ctx context.Context) {
	base := p.h.Base()
	frameDuration := time.Duration(float64(base.OutputFrameSize) / float64(base.OutputSampleRate) * float64(time.Second))
	if frameDuration <= 0 {
		frameDuration = media.OpusFrameDuration
	}
	p.pollLimiter = rate.NewLimiter(rate.Every(frameDuration), 1)

	for {
		select {
		case <-ctx.Done():
			close(p.outCh)
			return
		default:
		}

		result := p.h.Emit()
		if result == nil || result.IsEmpty() {
			if err := p.pollLimiter.Wait(ctx); err != nil {
				close(p.outCh)
				return
			}
			continue
		}

		now := time.Now()
		if !p.lastTimestamp.IsZero() && now.Sub(p.lastTimestamp) > 10*frameDuration {
			p.start = nil
		}

		dataTime := p.mediaClock
		if a := result.Audio; a != nil {
			channels := 1
			if a.Layout == media.LayoutStereo {
				channels = 2
			}
			if a.SampleRate > 0 {
				p.mediaClock += time.Duration(float64(len(a.Samples)/channels) / float64(a.SampleRate) * float64(time.Second))
			} else {
				p.mediaClock += frameDuration
			}
		}

		if p.start == nil {
			anchor := now.Add(-dataTime)
			p.start = &anchor
		} else {
			wait := p.start.Add(dataTime).Sub(time.Now())
			if wait > 0 {
				time.Sleep(wait)
			}
		}
		p.lastTimestamp = time.Now()

		out := OutputFrame{Audio: result.Audio, Extra: result.Extra}
		select {
		case p.outCh <- out:
		case <-ctx.Done():
			close(p.outCh)
			return
		}

		if out.Extra != nil {
			if ch := base.Channel(); ch != nil {
				_ = ch.Send(controlchannel.Create(controlchannel.TypeFetchOutput, []interface{}{}))
			}
		}
	}
}
