// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var dataClient = &http.Client{Timeout: 5 * time.Minute}

// runDataInit asks a running service to download and index the FAQ
// corpus. The long client timeout covers the upstream download.
func runDataInit(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(map[string]bool{"force": forceLoad})
	if err != nil {
		return fmt.Errorf("could not create bootstrap request: %w", err)
	}

	resp, err := dataClient.Post(serviceURL+"/v1/admin/bootstrap", "application/json",
		bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("could not reach the service at %s: %w", serviceURL, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("bootstrap failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result struct {
		Status    string `json:"status"`
		Documents int64  `json:"documents"`
	}
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return fmt.Errorf("unexpected bootstrap response: %s", string(bodyBytes))
	}

	switch result.Status {
	case "exists":
		fmt.Printf("Index already holds %d documents; use --force to re-load.\n", result.Documents)
	default:
		fmt.Printf("Indexed %d documents.\n", result.Documents)
	}
	return nil
}
