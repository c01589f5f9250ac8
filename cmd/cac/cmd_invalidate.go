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
	"net/http"

	"github.com/spf13/cobra"
)

var invalidateServerAddr string

// invalidateCacheCmd talks to a running `cac serve` process over HTTP. The
// surprise cache lives in the orchestrator's memory (§5.4), not in any
// shared store, so invalidating it only makes sense against the process
// that holds it — a separate short-lived CLI invocation would just build
// and discard its own empty cache.
var invalidateCacheCmd = &cobra.Command{
	Use:   "invalidate-cache",
	Short: "Drop a running server's surprise reranker cache of KL scores",
	RunE:  runInvalidateCacheCommand,
}

func init() {
	invalidateCacheCmd.Flags().StringVar(&invalidateServerAddr, "server", "http://localhost:8080", "base URL of a running cac serve process")
}

func runInvalidateCacheCommand(_ *cobra.Command, _ []string) error {
	resp, err := http.Post(invalidateServerAddr+"/v1/cac/cache/invalidate", "application/json", nil)
	if err != nil {
		return fmt.Errorf("invalidate-cache: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("invalidate-cache: server responded %s", resp.Status)
	}
	fmt.Println("surprise cache invalidated")
	return nil
}
