// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/config"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/httpapi"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/media"
	"github.com/fastrtc/fastrtc-go/internal/peerconn"
	"github.com/fastrtc/fastrtc-go/internal/reply"
	"github.com/fastrtc/fastrtc-go/internal/session"
	"github.com/fastrtc/fastrtc-go/internal/vad"
	"github.com/gin-gonic/gin"
)

func main() {
	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("failed to initialise config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("failed to load application config: %v", err)
	}

	logger, flush := logging.NewLogger(cfg.LogLevel)
	defer flush()

	logger.Infow("starting fastrtc-go", "service", cfg.Name, "version", cfg.Version)

	factory, err := peerconn.NewFactory(peerconn.NewConfigFromURLs(cfg.ICEServerURLs))
	if err != nil {
		logger.Errorw("failed to build peer connection factory", "error", err)
		return
	}

	mgr := session.NewManager(factory, logger, cfg.ConcurrencyLimit, time.Duration(cfg.TimeLimitSeconds)*time.Second)

	vadModel := vad.NewEnergyModel()

	audioCfg := media.AudioConfig{
		InputSampleRate:  cfg.InputSampleRate,
		OutputSampleRate: cfg.OutputSampleRate,
		OutputFrameSize:  cfg.OutputFrameSize,
		ExpectedLayout:   media.LayoutMono,
	}
	algoOptions := reply.AlgoOptions{
		AudioChunkDuration:      time.Duration(cfg.AlgoOptions.AudioChunkDurationSeconds * float64(time.Second)),
		StartedTalkingThreshold: time.Duration(cfg.AlgoOptions.StartedTalkingThreshold * float64(time.Second)),
		SpeechThreshold:         time.Duration(cfg.AlgoOptions.SpeechThresholdSeconds * float64(time.Second)),
	}

	handlerFactory := func() handler.AudioHandler {
		return reply.NewOnPause(echoReplyFn, algoOptions, vadModel, vad.DefaultOptions(), audioCfg, false, false)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	router := httpapi.NewRouter(mgr, logger, handlerFactory)
	router.Register(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Infow("listening", "addr", addr)
	if err := http.ListenAndServe(addr, engine); err != nil {
		logger.Errorw("server stopped", "error", err)
	}
}

// echoReplyFn is the default reply generator wired up when no
// application-specific handler is configured: it plays the captured
// utterance straight back, useful for smoke-testing the pipeline
// end-to-end without a real LLM/TTS stack attached.
func echoReplyFn(sampleRate int, audio []int16, args []interface{}) reply.ReplyGenerator {
	return &echoGenerator{sampleRate: sampleRate, audio: audio}
}

type echoGenerator struct {
	sampleRate int
	audio      []int16
	offset     int
}

const echoChunkSamples = 480

func (g *echoGenerator) Next() (*handler.EmitResult, bool, error) {
	if g.offset >= len(g.audio) {
		return nil, true, nil
	}
	end := g.offset + echoChunkSamples
	if end > len(g.audio) {
		end = len(g.audio)
	}
	chunk := g.audio[g.offset:end]
	g.offset = end

	return &handler.EmitResult{
		Audio: &media.AudioFrame{SampleRate: g.sampleRate, Samples: chunk, Layout: media.LayoutMono},
	}, false, nil
}
