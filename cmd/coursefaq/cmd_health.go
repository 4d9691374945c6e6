// Copyright (C) 2025 CourseFAQ Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthClient = &http.Client{Timeout: 10 * time.Second}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := healthClient.Get(serviceURL + "/v1/status")
	if err != nil {
		return fmt.Errorf("could not reach the service at %s: %w", serviceURL, err)
	}
	defer resp.Body.Close()

	var status struct {
		Healthy   bool   `json:"healthy"`
		Message   string `json:"message"`
		Documents int64  `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("unexpected status response: %w", err)
	}

	if status.Healthy {
		fmt.Printf("OK: %s\n", status.Message)
		return nil
	}
	return fmt.Errorf("unhealthy: %s", status.Message)
}
