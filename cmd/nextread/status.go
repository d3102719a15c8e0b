// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nextread/nextread/internal/ui"
)

// StatusResult is the shape 'nextread status --json' emits. Unlike the
// teacher's status.go, which opens its embedded database directly
// in-process, nextread serve is a long-running daemon fronting its own
// state over HTTP — status is an HTTP client against that daemon's
// /health and /predict/stats, not an in-process store reader.
type StatusResult struct {
	ProjectID string    `json:"project_id"`
	DataDir   string    `json:"data_dir"`
	HTTPAddr  string    `json:"http_addr"`
	Running   bool      `json:"running"`
	Health    any       `json:"health,omitempty"`
	Predict   any       `json:"predict_stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// runStatus executes 'nextread status', reporting whether the daemon
// is reachable and, if so, its health and rolling prediction stats.
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread status [options]

Reports whether 'nextread serve' is reachable for the current project,
and if so, its health and rolling prediction hit-rate.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		result := &StatusResult{Running: false, Error: err.Error(), Timestamp: time.Now()}
		if *jsonOutput {
			outputStatusJSON(result)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	result := &StatusResult{
		ProjectID: cfg.ProjectID,
		DataDir:   cfg.DataDir,
		HTTPAddr:  cfg.HTTPAddr,
		Timestamp: time.Now(),
	}

	client := &http.Client{Timeout: 2 * time.Second}
	base := fmt.Sprintf("http://%s", cfg.HTTPAddr)

	health, err := getJSON(client, base+"/health")
	if err != nil {
		result.Running = false
		result.Error = fmt.Sprintf("not reachable at %s: %v", cfg.HTTPAddr, err)
		if *jsonOutput {
			outputStatusJSON(result)
		} else {
			printStatus(result)
		}
		return
	}
	result.Running = true
	result.Health = health

	if predict, err := getJSON(client, base+"/predict/stats"); err == nil {
		result.Predict = predict
	}

	if *jsonOutput {
		outputStatusJSON(result)
	} else {
		printStatus(result)
	}
}

func getJSON(client *http.Client, url string) (any, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var v any
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func outputStatusJSON(result *StatusResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

func printStatus(result *StatusResult) {
	ui.Header("nextread Project Status")
	fmt.Printf("%s %s\n", ui.Label("Project ID:"), result.ProjectID)
	fmt.Printf("%s %s\n", ui.Label("Data Dir:"), ui.DimText(result.DataDir))
	fmt.Printf("%s %s\n", ui.Label("HTTP Addr:"), result.HTTPAddr)
	fmt.Println()

	if !result.Running {
		fmt.Printf("%s not running (%s)\n", ui.Label("Status:"), result.Error)
		fmt.Println()
		fmt.Println("Start it with: nextread serve &")
		return
	}
	fmt.Printf("%s running\n", ui.Label("Status:"))

	if b, err := json.MarshalIndent(result.Health, "  ", "  "); err == nil {
		fmt.Println(ui.Label("Health:"))
		fmt.Printf("  %s\n", b)
	}
	if result.Predict != nil {
		if b, err := json.MarshalIndent(result.Predict, "  ", "  "); err == nil {
			fmt.Println(ui.Label("Prediction stats:"))
			fmt.Printf("  %s\n", b)
		}
	}
}
