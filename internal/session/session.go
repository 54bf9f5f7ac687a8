// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package session implements the per-connection supervisor: it owns the
// peer connection, the stream handler's pipelines, the control data
// channel, and the additional-outputs queue, and coordinates their
// idempotent teardown.
package session

import (
	"context"
	"sync"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/outputqueue"
	"github.com/fastrtc/fastrtc-go/internal/pipeline"
	"github.com/pion/webrtc/v4"
)

// Session is one peer connection's worth of state: the WebRTC transport,
// the stream handler and its audio pipeline, and the side-channel output
// queue the HTTP/SSE surface drains.
type Session struct {
	ID string

	logger logging.Logger

	PC *webrtc.PeerConnection

	Handler  handler.AudioHandler
	Pipeline *pipeline.AudioPipeline
	Outputs  *outputqueue.Queue

	// AudioTrack is the outbound Opus track added to the peer connection
	// before answering, or nil if creating or adding that track failed.
	AudioTrack *webrtc.TrackLocalStaticSample
	audioOut   *outboundAudioBuffer

	dataChannel *webrtc.DataChannel

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// dataChannelSender adapts a pion *webrtc.DataChannel to
// controlchannel.Channel.
type dataChannelSender struct{ dc *webrtc.DataChannel }

func (d dataChannelSender) Send(message string) error {
	return d.dc.SendText(message)
}

// New builds a Session around an already-created peer connection and
// handler; the caller (Manager) wires up the pion event handlers before
// returning the session to the signaling path.
func New(id string, pc *webrtc.PeerConnection, h handler.AudioHandler, logger logging.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:       id,
		logger:   logger,
		PC:       pc,
		Handler:  h,
		Pipeline: pipeline.NewAudioPipeline(h, logger, 0),
		Outputs:  outputqueue.New(0, logger),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Context is cancelled once the session is cleaned up.
func (s *Session) Context() context.Context { return s.ctx }

// SetDataChannel attaches the negotiated data channel, propagating it to
// the handler's control-channel gate.
func (s *Session) SetDataChannel(dc *webrtc.DataChannel) {
	s.mu.Lock()
	s.dataChannel = dc
	s.mu.Unlock()
	s.Handler.Base().SetChannel(dataChannelSender{dc})
}

// SetArgs forwards client-supplied input arguments to the handler.
func (s *Session) SetArgs(args []interface{}) {
	s.Handler.Base().SetArgs(args)
}

// Start launches the handler's start-up hook, the inbound receive
// dispatch (wired externally via Pipeline.Receive per inbound frame),
// and the outbound pacing loop.
func (s *Session) Start() {
	go s.Handler.StartUp()
	go s.Pipeline.RunEmitLoop(s.ctx)
	go s.drainPacedOutput()
}

// drainPacedOutput forwards each paced output frame to its destination:
// audio is normalized to the outbound wire format, Opus-encoded, and
// written to the outbound WebRTC track (if one was negotiated), and
// additional outputs are pushed onto the session's output queue for the
// SSE endpoint to pick up.
func (s *Session) drainPacedOutput() {
	for out := range s.Pipeline.Output() {
		if out.Audio != nil && s.AudioTrack != nil {
			if s.audioOut == nil {
				buf, err := newOutboundAudioBuffer()
				if err != nil {
					s.logger.Errorw("failed to create opus encoder", "session_id", s.ID, "error", err)
					continue
				}
				s.audioOut = buf
			}
			if err := s.audioOut.push(s.AudioTrack, out.Audio); err != nil {
				s.logger.Debugw("failed to write outbound audio sample", "session_id", s.ID, "error", err)
			}
		}
		if out.Extra != nil {
			s.Outputs.Push(*out.Extra)
		}
	}
}

// Close idempotently tears the session down: signals the output queue's
// consumers to stop, cancels the session context, and closes the peer
// connection. Calling Close twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Outputs.Quit()
	s.cancel()
	return s.PC.Close()
}
