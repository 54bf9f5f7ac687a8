// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package errors defines the error-kind taxonomy used to decide how a
// fault propagates: absorbed locally, closes the affected pipeline, or
// closes the whole session. It deliberately classifies by kind rather
// than by Go type, since the same underlying error (a panic recovered
// inside a handler call, say) can fall into different kinds depending on
// where it was raised.
package errors

import "fmt"

// Kind classifies a fault by how it should propagate.
type Kind string

const (
	// KindConcurrencyExhausted: reject the offer with 429, no side effects.
	KindConcurrencyExhausted Kind = "concurrency_exhausted"
	// KindMediaStreamClosed: inbound track ended; stop the affected
	// pipeline, the session may continue if another direction is live.
	KindMediaStreamClosed Kind = "media_stream_closed"
	// KindHandlerFault: exception inside a user handler invocation;
	// reset conversational state if inside a reply engine, never tear
	// down the session.
	KindHandlerFault Kind = "handler_fault"
	// KindTimeout: an Emit call exceeded the timeout budget; skip this
	// tick and continue.
	KindTimeout Kind = "timeout"
	// KindProtocolFault: malformed offer or websocket event; close the
	// connection with an explicit error payload.
	KindProtocolFault Kind = "protocol_fault"
	// KindModelUnavailable: a VAD/STT capability was not configured;
	// raised eagerly at handler construction.
	KindModelUnavailable Kind = "model_unavailable"
)

// Error wraps an underlying cause with a propagation Kind.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause with the given kind.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Newf builds a Kind-classified error from a format string.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}

// IsSessionFatal reports whether a fault of this kind should close the
// whole peer connection rather than being absorbed locally.
func IsSessionFatal(kind Kind) bool {
	switch kind {
	case KindProtocolFault, KindConcurrencyExhausted, KindModelUnavailable:
		return true
	default:
		return false
	}
}
