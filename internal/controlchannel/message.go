// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package controlchannel implements the JSON control-plane protocol
// exchanged over the WebRTC data channel (and echoed, where applicable,
// by the telephony websocket bridge): out-of-band signals like
// "fetch your arguments now", "a stopword fired", or a log line, that
// ride alongside the media tracks rather than inside them.
package controlchannel

import "encoding/json"

// MessageType enumerates the control-channel message kinds. The value is
// sent verbatim as the "type" field of the JSON envelope.
type MessageType string

const (
	TypeSendInput   MessageType = "send_input"
	TypeFetchOutput MessageType = "fetch_output"
	TypeStopword    MessageType = "stopword"
	TypeError       MessageType = "error"
	TypeWarning     MessageType = "warning"
	TypeLog         MessageType = "log"
)

// Channel is anything that can deliver a control message string to the
// remote peer. The production implementation wraps a pion
// *webrtc.DataChannel; tests use an in-memory recorder.
type Channel interface {
	Send(message string) error
}

// envelope is the wire shape of a control message: {"type": ..., "data": ...}.
type envelope struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data"`
}

// Create builds the JSON-encoded control message for the given type and
// payload. Encoding errors are not expected for the payload shapes this
// package produces (strings and []interface{}), so Create swallows them
// and falls back to a bare type-only envelope rather than propagating an
// error through every call site.
func Create(msgType MessageType, data interface{}) string {
	b, err := json.Marshal(envelope{Type: msgType, Data: data})
	if err != nil {
		b, _ = json.Marshal(envelope{Type: msgType})
	}
	return string(b)
}

// Log sends an informational line down the control channel, used for the
// "pause_detected" / "response_starting" turn-taking markers.
func Log(ch Channel, message string) error {
	return sendLog(ch, TypeLog, message)
}

// Warning sends a warning line intended for display in a client UI.
func Warning(ch Channel, message string) error {
	return sendLog(ch, TypeWarning, message)
}

// SendError sends an error line, mirroring the raised-exception-as-message
// behavior of the handler error path.
func SendError(ch Channel, message string) error {
	return sendLog(ch, TypeError, message)
}

// sendLog sends the log/warning/error variants in the same {type, data}
// envelope as every other control message, with the text as "data".
func sendLog(ch Channel, msgType MessageType, message string) error {
	if ch == nil {
		return nil
	}
	b, err := json.Marshal(envelope{Type: msgType, Data: message})
	if err != nil {
		return err
	}
	return ch.Send(string(b))
}
