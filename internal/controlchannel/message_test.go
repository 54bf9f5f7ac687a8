// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package controlchannel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	sent []string
}

func (r *recordingChannel) Send(message string) error {
	r.sent = append(r.sent, message)
	return nil
}

func TestCreate_EncodesTypeAndData(t *testing.T) {
	msg := Create(TypeStopword, []interface{}{"hey assistant"})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(msg), &decoded))
	assert.Equal(t, string(TypeStopword), decoded["type"])
	assert.Equal(t, []interface{}{"hey assistant"}, decoded["data"])
}

func TestLog_SendsLogEnvelope(t *testing.T) {
	ch := &recordingChannel{}

	require.NoError(t, Log(ch, "pause_detected"))

	require.Len(t, ch.sent, 1)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ch.sent[0]), &decoded))
	assert.Equal(t, string(TypeLog), decoded["type"])
	assert.Equal(t, "pause_detected", decoded["data"])
}

func TestWarning_SendsWarningEnvelope(t *testing.T) {
	ch := &recordingChannel{}

	require.NoError(t, Warning(ch, "buffer nearly full"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ch.sent[0]), &decoded))
	assert.Equal(t, string(TypeWarning), decoded["type"])
}

func TestSendError_SendsErrorEnvelope(t *testing.T) {
	ch := &recordingChannel{}

	require.NoError(t, SendError(ch, "handler panicked"))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(ch.sent[0]), &decoded))
	assert.Equal(t, string(TypeError), decoded["type"])
}

func TestLog_NilChannelIsNoop(t *testing.T) {
	assert.NoError(t, Log(nil, "ignored"))
}
