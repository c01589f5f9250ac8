// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/hearthai/cac/internal/cac/httpapi"
)

var (
	servePort  int
	serveDebug bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Context Assembly Core over HTTP",
	RunE:  runServeCommand,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable gin debug mode and request logging")
}

func runServeCommand(_ *cobra.Command, _ []string) error {
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	orch, closeOrch, err := buildOrchestrator(slog.Default())
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer closeOrch()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("hearth-cac"))
	if serveDebug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	httpapi.RegisterRoutes(v1, httpapi.NewHandlers(orch, slog.Default()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down cac server")
		closeOrch()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", servePort)
	slog.Info("starting cac server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
