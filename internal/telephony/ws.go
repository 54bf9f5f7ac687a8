// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package telephony implements the websocket bridge used by providers
// (SIP/PSTN gateways) that speak 8kHz mu-law media framed as JSON events
// rather than WebRTC: {start, media, stop, ping}. It converts between
// mu-law and the handler's signed-16 PCM on the way in and out, and
// polls the handler's Emit on a fixed 20ms cadence rather than pacing
// against declared frame timestamps, since the media here has no pts of
// its own.
package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/gorilla/websocket"
)

const emitPollInterval = 20 * time.Millisecond

// inboundEvent is the subset of fields used across the four event kinds
// this bridge understands.
type inboundEvent struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

type outboundMediaEvent struct {
	Event     string            `json:"event"`
	Media     outboundMediaBody `json:"media"`
	StreamSID string            `json:"streamSid"`
}

type outboundMediaBody struct {
	Payload string `json:"payload"`
}

// Bridge drives one websocket connection against a stream handler.
type Bridge struct {
	conn    *websocket.Conn
	h       handler.AudioHandler
	logger  logging.Logger
	streamSID string
}

// NewBridge wraps an already-upgraded websocket connection.
func NewBridge(conn *websocket.Conn, h handler.AudioHandler, logger logging.Logger) *Bridge {
	h.Base().PhoneMode = true
	return &Bridge{conn: conn, h: h, logger: logger}
}

// Run drives the bridge until the connection closes or ctx is cancelled.
// It launches the emit loop and blocks reading inbound events.
func (b *Bridge) Run(ctx context.Context) {
	emitCtx, cancelEmit := context.WithCancel(ctx)
	defer cancelEmit()
	go b.emitLoop(emitCtx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			b.logger.Debugf("telephony: read error: %v", err)
			return
		}

		var evt inboundEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			b.logger.Debugf("telephony: malformed event: %v", err)
			continue
		}

		switch evt.Event {
		case "media":
			b.handleMedia(evt)
		case "start":
			b.streamSID = evt.StreamSID
		case "stop":
			return
		case "ping":
			// liveness only, no handler interaction required.
		}
	}
}

func (b *Bridge) handleMedia(evt inboundEvent) {
	raw, err := base64.StdEncoding.DecodeString(evt.Media.Payload)
	if err != nil {
		b.logger.Debugf("telephony: bad media payload: %v", err)
		return
	}
	pcm := muLawToLinear(raw)

	base := b.h.Base()
	resampled := base.Resampler(8000, media.LayoutMono).Process(pcm)
	if len(resampled) == 0 {
		return
	}
	b.h.Receive(media.AudioFrame{SampleRate: base.InputSampleRate, Samples: resampled, Layout: base.ExpectedLayout})
}

func (b *Bridge) emitLoop(ctx context.Context) {
	ticker := time.NewTicker(emitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out := b.h.Emit()
			if out == nil || out.Audio == nil {
				continue
			}
			b.sendAudio(*out.Audio)
		}
	}
}

func (b *Bridge) sendAudio(frame media.AudioFrame) {
	samples := frame.Samples
	if frame.SampleRate != 8000 {
		r := media.NewResampler(frame.SampleRate, frame.Layout, 8000, media.LayoutMono)
		samples = r.Process(samples)
	} else if frame.Layout == media.LayoutStereo {
		samples = media.StereoToMono(samples)
	}

	mulaw := linearToMuLaw(samples)
	payload := base64.StdEncoding.EncodeToString(mulaw)

	if b.streamSID == "" {
		return
	}
	msg := outboundMediaEvent{
		Event:     "media",
		Media:     outboundMediaBody{Payload: payload},
		StreamSID: b.streamSID,
	}
	b.mustWriteJSON(msg)
}

func (b *Bridge) mustWriteJSON(v interface{}) {
	if err := b.conn.WriteJSON(v); err != nil {
		b.logger.Debugf("telephony: write error: %v", err)
	}
}
