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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthai/cac/internal/cac/orchestrator"
)

var (
	assembleMessage    string
	assembleUserID     string
	assembleSystem     string
	assembleForgeReset bool
	assembleJSON       bool
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Run the assembly pipeline once for a single message and print the result",
	RunE:  runAssembleCommand,
}

func init() {
	assembleCmd.Flags().StringVar(&assembleMessage, "message", "", "user message to assemble a prefix for (required)")
	assembleCmd.Flags().StringVar(&assembleUserID, "user", "", "user id, used to look up an active trajectory")
	assembleCmd.Flags().StringVar(&assembleSystem, "system-prompt", "", "base system prompt, used by stage 2 dominance rerank")
	assembleCmd.Flags().BoolVar(&assembleForgeReset, "forge-reset", false, "reset the forge phase detector's session state")
	assembleCmd.Flags().BoolVar(&assembleJSON, "json", false, "print the full result as JSON instead of plain text")
	_ = assembleCmd.MarkFlagRequired("message")
}

func runAssembleCommand(_ *cobra.Command, _ []string) error {
	orch, closeOrch, err := buildOrchestrator(slog.Default())
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	defer closeOrch()

	result := orch.Assemble(context.Background(), orchestrator.Request{
		UserMessage:      assembleMessage,
		UserID:           assembleUserID,
		BaseSystemPrompt: assembleSystem,
		ForgeReset:       assembleForgeReset,
	}, time.Now())

	if assembleJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.HasPrefix {
		fmt.Println("(no prefix produced)")
	} else {
		fmt.Println(result.Prefix)
	}
	fmt.Printf("\n--- diagnostics ---\nheat=%.2f goal=%s temporal_disabled=%v stage1=%d stage2=%v reframe=%v scout_findings=%d\n",
		result.Diagnostics.Heat, result.Diagnostics.Goal, result.Diagnostics.TemporalDisabled,
		result.Diagnostics.Stage1Count, result.Diagnostics.Stage2Triggered, result.Diagnostics.ReframeTriggered,
		result.Diagnostics.ScoutFindingCount)
	for _, w := range result.Diagnostics.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
