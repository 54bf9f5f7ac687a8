// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package telephony

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMuLawRoundTrip_IsLossyButClose(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 30000, -30000, 32767, -32768}
	encoded := linearToMuLaw(samples)
	decoded := muLawToLinear(encoded)

	// mu-law is a lossy log-companded codec: the top segment quantizes in
	// steps of 1024 and clips at 32635, so 32767 decodes to 32124 (off by 643).
	tolerance := 650
	for i, s := range samples {
		diff := int(s) - int(decoded[i])
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqualf(t, diff, tolerance, "sample %d: %d round-tripped to %d", i, s, decoded[i])
	}
}

func TestLinearToMuLaw_ZeroEncodesToSilenceByte(t *testing.T) {
	encoded := linearToMuLaw([]int16{0})
	decoded := muLawToLinear(encoded)
	assert.InDelta(t, 0, decoded[0], 40)
}
