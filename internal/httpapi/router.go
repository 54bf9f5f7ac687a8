// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package httpapi exposes the offer/input/output/telephony surface over
// gin: POST /webrtc/offer negotiates a new session, POST /webrtc/input
// forwards client arguments, GET /webrtc/output/:id streams additional
// outputs via server-sent events, and GET /telephony/ws upgrades to the
// websocket bridge.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/fastrtc/fastrtc-go/internal/errors"
	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
	"github.com/fastrtc/fastrtc-go/internal/session"
	"github.com/fastrtc/fastrtc-go/internal/telephony"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Router wires the signaling and streaming endpoints to a Manager.
type Router struct {
	manager        *session.Manager
	logger         logging.Logger
	handlerFactory session.HandlerFactory
	upgrader       websocket.Upgrader
}

// NewRouter builds a Router. handlerFactory produces a fresh stream
// handler for each new connection (WebRTC or telephony).
func NewRouter(manager *session.Manager, logger logging.Logger, handlerFactory session.HandlerFactory) *Router {
	return &Router{
		manager:        manager,
		logger:         logger,
		handlerFactory: handlerFactory,
		upgrader:       websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Register attaches the routes to a gin engine.
func (rt *Router) Register(engine *gin.Engine) {
	engine.POST("/webrtc/offer", rt.handleOffer)
	engine.POST("/webrtc/input/:id", rt.handleInput)
	engine.GET("/webrtc/output/:id", rt.handleOutputStream)
	engine.GET("/telephony/ws", rt.handleTelephonyWS)
}

type offerRequest struct {
	SDP  string `json:"sdp" binding:"required"`
	Type string `json:"type" binding:"required"`
}

type offerResponse struct {
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
	WebRTCID  string `json:"webrtc_id"`
}

type failureResponse struct {
	Status string       `json:"status"`
	Meta   failureDetail `json:"meta"`
}

type failureDetail struct {
	Error string `json:"error"`
	Limit int    `json:"limit,omitempty"`
}

func (rt *Router) handleOffer(c *gin.Context) {
	var req offerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failureResponse{Status: "failed", Meta: failureDetail{Error: "malformed_offer"}})
		return
	}

	answer, id, err := rt.manager.HandleOffer(req.SDP, rt.handlerFactory)
	if err != nil {
		if fastrtcErr, ok := err.(*errors.Error); ok && fastrtcErr.Kind == errors.KindConcurrencyExhausted {
			c.JSON(http.StatusTooManyRequests, failureResponse{
				Status: "failed",
				Meta:   failureDetail{Error: "concurrency_limit_reached", Limit: rt.manager.Count()},
			})
			return
		}
		rt.logger.Warnw("offer handling failed", "error", err)
		c.JSON(http.StatusBadRequest, failureResponse{Status: "failed", Meta: failureDetail{Error: "offer_rejected"}})
		return
	}

	c.JSON(http.StatusOK, offerResponse{SDP: answer, Type: "answer", WebRTCID: id})
}

type inputRequest struct {
	Args []interface{} `json:"args"`
}

func (rt *Router) handleInput(c *gin.Context) {
	id := c.Param("id")
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_input"})
		return
	}
	if err := rt.manager.SetInput(id, req.Args); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleOutputStream drains the session's additional-outputs queue as
// server-sent events, polling with a 10s per-item timeout so a slow
// producer doesn't hold the HTTP handler goroutine forever and the
// stream still notices client disconnects promptly.
func (rt *Router) handleOutputStream(c *gin.Context) {
	id := c.Param("id")
	sess, ok := rt.manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Outputs.Done():
			return
		default:
		}

		getCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		out, ok := sess.Outputs.Get(getCtx)
		cancel()
		if !ok {
			if ctx.Err() != nil || sess.Context().Err() != nil {
				return
			}
			continue
		}

		c.SSEvent("output", additionalOutputsPayload(out))
		c.Writer.Flush()
	}
}

func additionalOutputsPayload(out handler.AdditionalOutputs) gin.H {
	return gin.H{"args": out.Args}
}

// handleTelephonyWS upgrades to the telephony bridge, enforced against the
// same concurrency cap as /webrtc/offer: a telephony call that would push
// the combined session+bridge count past the limit is rejected before the
// websocket is even upgraded.
func (rt *Router) handleTelephonyWS(c *gin.Context) {
	if !rt.manager.AcquireTelephonySlot() {
		c.JSON(http.StatusTooManyRequests, failureResponse{
			Status: "failed",
			Meta:   failureDetail{Error: "concurrency_limit_reached", Limit: rt.manager.Count()},
		})
		return
	}
	defer rt.manager.ReleaseTelephonySlot()

	conn, err := rt.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rt.logger.Warnw("telephony websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h := rt.handlerFactory()
	bridge := telephony.NewBridge(conn, h, rt.logger)
	bridge.Run(c.Request.Context())
}
