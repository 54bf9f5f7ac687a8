// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package pipeline

import (
	"context"

	"github.com/fastrtc/fastrtc-go/internal/controlchannel"
	"github.com/fastrtc/fastrtc-go/internal/handler"
)

// VideoFrame is a single decoded video frame (BGR24, matching the
// reference array_to_frame/to_ndarray convention) plus its declared
// presentation timestamp.
type VideoFrame struct {
	Data   []byte
	Width  int
	Height int
	PTS    int64
}

// VideoMode selects one of the three video wiring shapes a track can be
// attached in.
type VideoMode string

const (
	// ModeSendReceive is passthrough-processed video: every inbound
	// frame is transformed in place and re-emitted with the same pts.
	ModeSendReceive VideoMode = "send-receive"
	// ModeSend only emits frames the handler actually produced; a nil
	// result drops the tick instead of forwarding the raw frame.
	ModeSend VideoMode = "send"
	// ModeReceive is the server-to-client generator-driven mode: there
	// is no inbound track, frames are pulled from a generator on a
	// fixed cadence.
	ModeReceive VideoMode = "receive"
)

// FrameTransform is the caller-supplied per-frame video handler: given
// one inbound frame, it returns the transformed frame plus optional
// additional outputs. Client-set arguments are not passed to it.
type FrameTransform func(frame VideoFrame) (*VideoFrame, *handler.AdditionalOutputs)

// VideoPassthrough drives a FrameTransform over an inbound video track in
// ModeSendReceive or ModeSend.
type VideoPassthrough struct {
	transform FrameTransform
	mode      VideoMode
	channel   controlchannel.Channel
}

// NewVideoPassthrough builds a passthrough pipeline for the given mode.
func NewVideoPassthrough(transform FrameTransform, mode VideoMode) *VideoPassthrough {
	return &VideoPassthrough{transform: transform, mode: mode}
}

// SetChannel attaches the control channel used to announce additional
// outputs via a "fetch_output" message.
func (v *VideoPassthrough) SetChannel(ch controlchannel.Channel) {
	v.channel = ch
}

// Process runs the transform over one inbound frame, returning the frame
// to emit (nil if this tick should be dropped) exactly as VideoCallback.recv
// does: in ModeSend a nil transform result drops the frame; in
// ModeSendReceive a nil result still returns nothing (there is nothing
// sensible to re-emit without a transform output).
func (v *VideoPassthrough) Process(in VideoFrame) *VideoFrame {
	out, extra := v.transform(in)
	if extra != nil && v.channel != nil {
		_ = v.channel.Send(controlchannel.Create(controlchannel.TypeFetchOutput, []interface{}{}))
	}
	if out == nil {
		return nil
	}
	out.PTS = in.PTS
	return out
}

// VideoGenerator is the server-to-client generator contract: Next
// produces one frame per tick, or done=true once exhausted (ending the
// track).
type VideoGenerator interface {
	Next() (frame *VideoFrame, done bool, err error)
}

// ServerToClientVideo drives a VideoGenerator on its own pts sequence, for
// ModeReceive tracks that have no inbound video at all.
type ServerToClientVideo struct {
	gen VideoGenerator
	pts int64
	// ptsStep is the per-frame pts increment; callers fill in the target
	// frame rate's tick count (e.g. 90000/fps for a 90kHz video clock).
	ptsStep int64
}

// NewServerToClientVideo builds a driver around a generator-backed video
// handler.
func NewServerToClientVideo(gen VideoGenerator, ptsStep int64) *ServerToClientVideo {
	return &ServerToClientVideo{gen: gen, ptsStep: ptsStep}
}

// Next advances the generator by one frame, stamping its own pts since a
// generator-driven track has no inbound frame to inherit one from.
func (s *ServerToClientVideo) Next(ctx context.Context) (*VideoFrame, bool, error) {
	frame, done, err := s.gen.Next()
	if done || err != nil {
		return nil, true, err
	}
	frame.PTS = s.pts
	s.pts += s.ptsStep
	return frame, false, nil
}
