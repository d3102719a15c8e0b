// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/nextread/nextread/internal/errors"
)

// runRank executes 'nextread rank', a thin client over the running
// daemon's GET /rank — the Ranking Store's composite score
// query under the tuner's currently-selected weight arm).
func runRank(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	tag := fs.String("tag", "", "Restrict to paths carrying this tag")
	limit := fs.Int("limit", 20, "Maximum number of paths to return")
	jsonOutput := fs.Bool("json", globals.JSON, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread rank [options]

Queries the Ranking Store's composite score via the
running 'nextread serve' daemon.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"cannot load project configuration", err.Error(),
			"run 'nextread init' in this directory first", err), globals.JSON)
	}

	q := url.Values{}
	if *tag != "" {
		q.Set("tag", *tag)
	}
	q.Set("limit", strconv.Itoa(*limit))

	client := &http.Client{Timeout: 5 * time.Second}
	reqURL := fmt.Sprintf("http://%s/rank?%s", cfg.HTTPAddr, q.Encode())
	resp, err := client.Get(reqURL)
	if err != nil {
		errors.FatalError(errors.NewNetworkError(
			"cannot reach nextread serve", err.Error(),
			"start it with 'nextread serve'", err), globals.JSON)
	}
	defer func() { _ = resp.Body.Close() }()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		errors.FatalError(errors.NewInternalError("cannot decode response", err.Error(), "", err), globals.JSON)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}

	printRankResult(result)
}

func printRankResult(result any) {
	m, ok := result.(map[string]any)
	if !ok {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(b))
		return
	}
	files, _ := m["files"].([]any)
	if len(files) == 0 {
		fmt.Println("No ranked files.")
		return
	}
	for i, f := range files {
		fmt.Printf("%3d. %v\n", i+1, f)
	}
}
