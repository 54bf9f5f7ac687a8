// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package peerconn builds the pion WebRTC configuration and peer
// connection factory used by the session manager.
package peerconn

import (
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// Config holds the ICE server set and transport policy applied to every
// new peer connection.
type Config struct {
	ICEServers         []webrtc.ICEServer
	ICETransportPolicy webrtc.ICETransportPolicy
}

// DefaultConfig mirrors the reference STUN-only default.
func DefaultConfig() Config {
	return Config{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
		},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

// NewConfigFromURLs builds a Config from a flat list of ICE server URLs,
// used to thread the configured value through from AppConfig.
func NewConfigFromURLs(urls []string) Config {
	if len(urls) == 0 {
		return DefaultConfig()
	}
	return Config{
		ICEServers:         []webrtc.ICEServer{{URLs: urls}},
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

// Factory builds configured *webrtc.PeerConnection instances, sharing a
// single interceptor-registered media engine and API across connections.
type Factory struct {
	api *webrtc.API
	cfg webrtc.Configuration
}

// NewFactory builds a Factory with the default media engine plus the
// standard interceptor registry (NACK, RTCP reports, twcc, etc.), the
// same registration pattern pion's own examples use.
func NewFactory(cfg Config) (*Factory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
		return nil, err
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(m), webrtc.WithInterceptorRegistry(i))

	return &Factory{
		api: api,
		cfg: webrtc.Configuration{
			ICEServers:         cfg.ICEServers,
			ICETransportPolicy: cfg.ICETransportPolicy,
		},
	}, nil
}

// NewPeerConnection creates a new peer connection using the factory's
// shared API and configuration.
func (f *Factory) NewPeerConnection() (*webrtc.PeerConnection, error) {
	return f.api.NewPeerConnection(f.cfg)
}
