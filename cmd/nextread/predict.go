// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextread/nextread/internal/errors"
)

type predictRequest struct {
	Intent       string   `json:"intent,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	CurrentFile  string   `json:"current_file,omitempty"`
	Session      string   `json:"session"`
	SnippetLines int      `json:"snippet_lines,omitempty"`
}

// runPredict executes 'nextread predict', a thin client over the
// running daemon's POST /predict. Without an
// explicit --session, a fresh one is generated per invocation — a
// predict call from the CLI is one-shot, not part of a tracked
// assistant session.
func runPredict(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	intent := fs.String("intent", "", "Free-text description of current intent")
	keywords := fs.String("keywords", "", "Comma-separated keyword list (alternative to --intent)")
	currentFile := fs.String("current-file", "", "Path of the file currently open")
	session := fs.String("session", "", "Session id (default: a fresh one per invocation)")
	snippetLines := fs.Int("snippet-lines", 0, "Lines of snippet context to fetch per predicted file")
	jsonOutput := fs.Bool("json", globals.JSON, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread predict [options]

Queries the Prediction Engine via the running
'nextread serve' daemon.

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

	req := predictRequest{
		Intent:       *intent,
		CurrentFile:  *currentFile,
		Session:      *session,
		SnippetLines: *snippetLines,
	}
	if *keywords != "" {
		for _, k := range strings.Split(*keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				req.Keywords = append(req.Keywords, k)
			}
		}
	}
	if req.Session == "" {
		req.Session = uuid.NewString()
	}
	if req.Intent == "" && len(req.Keywords) == 0 {
		errors.FatalError(errors.NewInputError(
			"missing intent",
			"one of --intent or --keywords is required",
			"e.g. nextread predict --intent \"fix the login bug\""), globals.JSON)
	}

	body, err := json.Marshal(req)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot encode request", err.Error(), "", err), globals.JSON)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	reqURL := fmt.Sprintf("http://%s/predict", cfg.HTTPAddr)
	resp, err := client.Post(reqURL, "application/json", bytes.NewReader(body))
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

	printPredictResult(result)
}

func printPredictResult(result any) {
	m, ok := result.(map[string]any)
	if !ok {
		b, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(b))
		return
	}
	files, _ := m["files"].([]any)
	if len(files) == 0 {
		fmt.Println("No predicted files.")
		return
	}
	for i, f := range files {
		fmt.Printf("%3d. %v\n", i+1, f)
	}
}
