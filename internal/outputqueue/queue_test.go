// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package outputqueue

import (
	"context"
	"testing"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushGet_FIFOOrder(t *testing.T) {
	q := New(10, logging.NewTestLogger())
	q.Push(handler.AdditionalOutputs{Args: []interface{}{1}})
	q.Push(handler.AdditionalOutputs{Args: []interface{}{2}})

	ctx := context.Background()
	out1, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, []interface{}{1}, out1.Args)

	out2, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, []interface{}{2}, out2.Args)
}

func TestPush_DropsOldestWhenFull(t *testing.T) {
	q := New(2, logging.NewTestLogger())
	q.Push(handler.AdditionalOutputs{Args: []interface{}{1}})
	q.Push(handler.AdditionalOutputs{Args: []interface{}{2}})
	q.Push(handler.AdditionalOutputs{Args: []interface{}{3}})

	ctx := context.Background()
	out, ok := q.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, []interface{}{2}, out.Args, "oldest entry should have been dropped")
}

func TestGet_ReturnsFalseOnContextCancel(t *testing.T) {
	q := New(10, logging.NewTestLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := q.Get(ctx)
	assert.False(t, ok)
}

func TestGet_ReturnsFalseAfterQuit(t *testing.T) {
	q := New(10, logging.NewTestLogger())
	q.Quit()

	ctx := context.Background()
	_, ok := q.Get(ctx)
	assert.False(t, ok)
}

func TestFetchLatest_ReturnsMostRecentWithoutConsuming(t *testing.T) {
	q := New(10, logging.NewTestLogger())
	q.Push(handler.AdditionalOutputs{Args: []interface{}{1}})
	q.Push(handler.AdditionalOutputs{Args: []interface{}{2}})

	latest, ok := q.FetchLatest()
	require.True(t, ok)
	assert.Equal(t, []interface{}{2}, latest.Args)

	out, ok := q.Get(context.Background())
	require.True(t, ok)
	assert.Equal(t, []interface{}{1}, out.Args, "FetchLatest should not remove items from the queue")
}
