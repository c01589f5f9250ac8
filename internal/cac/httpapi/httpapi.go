// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package httpapi exposes the orchestrator's assemble_prefix,
// invalidate_surprise_cache, detect_affect, and detect_phase operations
// (§6) over HTTP, using gin the way the rest of the pack's services do.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hearthai/cac/internal/cac/orchestrator"
	"github.com/hearthai/cac/internal/cac/types"
)

// ErrorResponse is the standard error body for a non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers bundles the orchestrator behind gin handler funcs.
type Handlers struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewHandlers builds a Handlers around an already-wired Orchestrator.
func NewHandlers(orch *orchestrator.Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orch: orch, logger: logger}
}

// RegisterRoutes registers all /v1/cac/* endpoints on rg.
//
// Endpoints:
//
//	POST /v1/cac/assemble        - assemble_prefix
//	POST /v1/cac/cache/invalidate - invalidate_surprise_cache
//	POST /v1/cac/affect          - detect_affect
//	POST /v1/cac/phase           - detect_phase
//	GET  /v1/cac/health          - liveness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cac := rg.Group("/cac")
	{
		cac.POST("/assemble", handlers.HandleAssemble)
		cac.POST("/cache/invalidate", handlers.HandleInvalidateCache)
		cac.POST("/affect", handlers.HandleDetectAffect)
		cac.POST("/phase", handlers.HandleDetectPhase)
		cac.GET("/health", handlers.HandleHealth)
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// AssembleRequest is the JSON body for POST /v1/cac/assemble.
type AssembleRequest struct {
	UserMessage      string              `json:"user_message" binding:"required"`
	UserID           string              `json:"user_id"`
	BaseSystemPrompt string              `json:"base_system_prompt"`
	AffectOverride   *types.AffectShape  `json:"affect_override"`
	ForgeReset       bool                `json:"forge_reset"`
}

// AssembleResponse is the JSON body returned by POST /v1/cac/assemble.
type AssembleResponse struct {
	Prefix      string                    `json:"prefix,omitempty"`
	HasPrefix   bool                      `json:"has_prefix"`
	Diagnostics orchestrator.Diagnostics `json:"diagnostics"`
}

// HandleAssemble handles POST /v1/cac/assemble.
//
// Description:
//
//	Runs the full context assembly pipeline for one user message and
//	returns the injected prefix, if any, plus per-stage diagnostics. Never
//	returns a 5xx for pipeline stage failures — those degrade the result
//	in place (§7) — only for a malformed request body.
//
// Response:
//
//	200 OK: AssembleResponse
//	400 Bad Request: missing or malformed body
func (h *Handlers) HandleAssemble(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleAssemble")

	var req AssembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}

	result := h.orch.Assemble(c.Request.Context(), orchestrator.Request{
		UserMessage:      req.UserMessage,
		UserID:           req.UserID,
		BaseSystemPrompt: req.BaseSystemPrompt,
		AffectOverride:   req.AffectOverride,
		ForgeReset:       req.ForgeReset,
	}, time.Now())

	if len(result.Diagnostics.Warnings) > 0 {
		logger.Warn("assemble completed with warnings", "warnings", result.Diagnostics.Warnings)
	}

	c.JSON(http.StatusOK, AssembleResponse{
		Prefix:      result.Prefix,
		HasPrefix:   result.HasPrefix,
		Diagnostics: result.Diagnostics,
	})
}

// HandleInvalidateCache handles POST /v1/cac/cache/invalidate.
//
// Response:
//
//	204 No Content
func (h *Handlers) HandleInvalidateCache(c *gin.Context) {
	h.orch.InvalidateSurpriseCache()
	c.Status(http.StatusNoContent)
}

// DetectAffectRequest is the JSON body for POST /v1/cac/affect.
type DetectAffectRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleDetectAffect handles POST /v1/cac/affect.
//
// Response:
//
//	200 OK: types.AffectResult
//	400 Bad Request: missing text
func (h *Handlers) HandleDetectAffect(c *gin.Context) {
	var req DetectAffectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	c.JSON(http.StatusOK, h.orch.DetectAffect(req.Text))
}

// DetectPhaseRequest is the JSON body for POST /v1/cac/phase.
type DetectPhaseRequest struct {
	Text  string `json:"text" binding:"required"`
	Reset bool   `json:"reset"`
}

// HandleDetectPhase handles POST /v1/cac/phase.
//
// Response:
//
//	200 OK: types.ForgeResult
//	400 Bad Request: missing text
func (h *Handlers) HandleDetectPhase(c *gin.Context) {
	var req DetectPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	c.JSON(http.StatusOK, h.orch.DetectPhase(req.Text, req.Reset))
}

// HandleHealth handles GET /v1/cac/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
