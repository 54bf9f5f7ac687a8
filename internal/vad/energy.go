// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package vad

import "time"

// EnergyModel is a minimal, dependency-free Model implementation: it
// classifies a sample as "speech" when its magnitude exceeds a fixed
// threshold. It exists so the reply engines have something concrete to
// run against out of the box; production deployments are expected to
// swap in a real neural VAD binding behind the same Model interface.
type EnergyModel struct {
	// Threshold is the minimum int16 magnitude considered speech.
	Threshold int16
}

// NewEnergyModel builds an EnergyModel with a reasonable default
// threshold for 16-bit PCM voice (~3% of full scale).
func NewEnergyModel() *EnergyModel {
	return &EnergyModel{Threshold: 1000}
}

func (m *EnergyModel) Detect(sampleRate int, audio []int16, opts Options) time.Duration {
	chunks := m.DetectChunks(sampleRate, audio, opts)
	var total time.Duration
	for _, c := range chunks {
		total += time.Duration(float64(c.EndSample-c.StartSample)/float64(sampleRate)*float64(time.Second))
	}
	return total
}

func (m *EnergyModel) DetectChunks(sampleRate int, audio []int16, opts Options) []SpeechChunk {
	var chunks []SpeechChunk
	inSpeech := false
	start := 0
	for i, s := range audio {
		above := s > m.Threshold || s < -m.Threshold
		if above && !inSpeech {
			inSpeech = true
			start = i
		} else if !above && inSpeech {
			inSpeech = false
			chunks = append(chunks, SpeechChunk{StartSample: start, EndSample: i})
		}
	}
	if inSpeech {
		chunks = append(chunks, SpeechChunk{StartSample: start, EndSample: len(audio)})
	}
	return chunks
}

var _ Model = (*EnergyModel)(nil)
