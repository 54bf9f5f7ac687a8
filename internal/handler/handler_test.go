// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package handler

import (
	"testing"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	sent []string
}

func (c *recordingChannel) Send(message string) error {
	c.sent = append(c.sent, message)
	return nil
}

func TestBase_WaitForArgs_BlocksUntilSetArgs(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), false)
	ch := &recordingChannel{}
	b.SetChannel(ch)

	gate := b.WaitForArgs()
	select {
	case <-gate:
		t.Fatal("gate should not be closed before SetArgs is called")
	case <-time.After(20 * time.Millisecond):
	}
	require.NotEmpty(t, ch.sent, "WaitForArgs should have requested input from the client")

	b.SetArgs([]interface{}{"hello"})
	select {
	case <-gate:
	case <-time.After(time.Second):
		t.Fatal("gate did not open after SetArgs")
	}
	assert.Equal(t, []interface{}{"hello"}, b.LatestArgs())
}

func TestBase_WaitForArgs_PhoneModeNeverBlocks(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), true)
	gate := b.WaitForArgs()
	select {
	case <-gate:
	default:
		t.Fatal("phone-mode gate should already be closed")
	}
}

func TestBase_Reset_RearmsGateForNextTurn(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), false)
	b.SetArgs([]interface{}{"first"})
	<-b.WaitForArgs()

	b.Reset()
	gate := b.WaitForArgs()
	select {
	case <-gate:
		t.Fatal("gate should be re-armed (channel not closed) after Reset in non-phone mode")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBase_Reset_PhoneModeRearmsImmediatelyWithNilArgs(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), true)
	b.Reset()
	select {
	case <-b.WaitForArgs():
	default:
		t.Fatal("phone-mode reset should re-close the gate immediately")
	}
	assert.Equal(t, []interface{}{nil}, b.LatestArgs())
}

func TestBase_ChannelSet_ClosesOnFirstSetChannel(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), false)
	select {
	case <-b.ChannelSet():
		t.Fatal("channel gate should not be closed before SetChannel")
	default:
	}
	b.SetChannel(&recordingChannel{})
	select {
	case <-b.ChannelSet():
	default:
		t.Fatal("channel gate should be closed after SetChannel")
	}
}

func TestBase_Resampler_IsLazyAndMemoized(t *testing.T) {
	b := NewBase(media.DefaultAudioConfig(), false)
	r1 := b.Resampler(48000, media.LayoutMono)
	r2 := b.Resampler(48000, media.LayoutMono)
	assert.Same(t, r1, r2, "Resampler should be built once and reused")
}
