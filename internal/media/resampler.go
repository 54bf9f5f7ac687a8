// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package media

import (
	"github.com/oov/audio/resampler"
)

const (
	resampleQuality = 10
	resampleBufSize = 16384
)

// Resampler converts interleaved int16 PCM between sample rates and mono/
// stereo layouts, reusing pre-allocated planar float32 scratch buffers so
// steady-state resampling does no per-frame allocation.
//
// It is lazily instantiated per stream handler so the source sample rate
// and frame size can be discovered from the first inbound frame, the same
// way the stream handler contract resamples lazily on first receive.
type Resampler struct {
	srcRate, dstRate int
	srcChannels      int
	dstChannels      int
	r                *resampler.Resampler

	srcPlanar [][]float32
	dstPlanar [][]float32
	dstBuf    []int16
}

// NewResampler builds a resampler converting from (srcRate, srcLayout) to
// (dstRate, dstLayout). The planar scratch buffers are sized for
// resampleBufSize samples per channel, enough for any realistic frame.
func NewResampler(srcRate int, srcLayout Layout, dstRate int, dstLayout Layout) *Resampler {
	srcChannels := channelCount(srcLayout)
	dstChannels := channelCount(dstLayout)

	// The oov resampler operates per logical channel; build it for the
	// larger of the two channel counts so both mono and stereo paths can
	// reuse the same underlying filter state per channel index.
	filterChannels := srcChannels
	if dstChannels > filterChannels {
		filterChannels = dstChannels
	}

	rs := &Resampler{
		srcRate:     srcRate,
		dstRate:     dstRate,
		srcChannels: srcChannels,
		dstChannels: dstChannels,
		r:           resampler.New(filterChannels, srcRate, dstRate, resampleQuality),
		dstBuf:      make([]int16, resampleBufSize),
	}
	for c := 0; c < filterChannels; c++ {
		rs.srcPlanar = append(rs.srcPlanar, make([]float32, resampleBufSize))
		rs.dstPlanar = append(rs.dstPlanar, make([]float32, resampleBufSize))
	}
	return rs
}

func channelCount(l Layout) int {
	if l == LayoutStereo {
		return 2
	}
	return 1
}

// Process resamples and/or remixes an interleaved int16 PCM frame,
// returning a new interleaved int16 slice in the destination layout and
// sample rate. The returned slice is only valid until the next Process
// call.
func (rs *Resampler) Process(src []int16) []int16 {
	frames := len(src) / rs.srcChannels
	if frames == 0 {
		return nil
	}
	if frames > resampleBufSize {
		frames = resampleBufSize
	}

	deinterleave(src, rs.srcPlanar, rs.srcChannels, frames)

	written := 0
	for c := 0; c < len(rs.srcPlanar); c++ {
		srcCh := rs.srcPlanar[c][:frames]
		if c >= rs.srcChannels-1 && rs.srcChannels == 1 {
			// Mono source feeding a filter built for more channels: mirror
			// channel 0 into every filter channel so all stay in sync.
			srcCh = rs.srcPlanar[0][:frames]
		}
		_, w := rs.r.ProcessFloat32(c, srcCh, rs.dstPlanar[c])
		written = w
	}

	if rs.dstChannels == rs.srcChannels {
		return interleave(rs.dstPlanar, rs.dstChannels, written, rs.dstBuf)
	}
	if rs.dstChannels == 1 {
		// stereo source resampled down to mono: average L/R after resample.
		for i := 0; i < written; i++ {
			rs.dstPlanar[0][i] = (rs.dstPlanar[0][i] + rs.dstPlanar[1][i]) / 2
		}
		return interleave(rs.dstPlanar[:1], 1, written, rs.dstBuf)
	}
	// mono source resampled up to stereo: duplicate channel 0 into channel 1.
	copy(rs.dstPlanar[1][:written], rs.dstPlanar[0][:written])
	return interleave(rs.dstPlanar, 2, written, rs.dstBuf)
}

func deinterleave(src []int16, planar [][]float32, channels, frames int) {
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			planar[c][i] = float32(src[i*channels+c])
		}
	}
}

func interleave(planar [][]float32, channels, frames int, dst []int16) []int16 {
	need := frames * channels
	if cap(dst) < need {
		dst = make([]int16, need)
	}
	dst = dst[:need]
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			dst[i*channels+c] = int16(planar[c][i])
		}
	}
	return dst
}
