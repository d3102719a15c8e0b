// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the nextread CLI: the human-facing client for
// the local code-intelligence service (symbol index, ranking store,
// prediction engine, intent capture). It is a thin client over the same
// HTTP surface the host-assistant hooks use.
//
// Usage:
//
//	nextread init                 Register this directory as a project
//	nextread index [--full]       Build or refresh the Symbol Index
//	nextread serve                Start the local HTTP surface
//	nextread status [--json]      Show index/store/tuner status
//	nextread rank --tag T         Query the Ranking Store
//	nextread predict              Query the Prediction Engine
//	nextread hook                 Read one intent envelope from stdin
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags every subcommand sees, regardless of its
// own flag set.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .nextread/project.yaml (default: ./.nextread/project.yaml)")
		jsonOut     = flag.Bool("json", false, "Output machine-readable JSON where supported")
		quiet       = flag.Bool("q", false, "Suppress non-essential output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Int("v", 0, "Verbosity level")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nextread - local code-intelligence service CLI

Usage:
  nextread <command> [options]

Commands:
  init          Register this directory as a project
  index         Build or refresh the Symbol Index
  serve         Start the local HTTP surface and background loops
  status        Show index/store/tuner status
  rank          Query the Ranking Store (GET /rank)
  predict       Query the Prediction Engine (POST /predict)
  hook          Read one intent envelope from stdin, forward to /intent
  install-hook  Install a git post-commit hook for full re-indexing
  projects      List/enable/disable/remove registered projects
  reset         Delete a project's on-disk state (destructive!)
  stop          Stop a running 'nextread serve' process
  completion    Generate shell completion scripts

Global Options:
  --config      Path to .nextread/project.yaml
  --json        Output machine-readable JSON where supported
  -q            Suppress non-essential output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  nextread init
  nextread index --full
  nextread serve &
  nextread status --json
  nextread rank --tag api

Data Storage:
  Project state is stored in ~/.nextread/data/<project_id>/

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("nextread version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{JSON: *jsonOut, Quiet: *quiet, NoColor: *noColor, Verbose: *verbose}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, *configPath, globals)
	case "serve":
		runServe(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "rank":
		runRank(cmdArgs, *configPath, globals)
	case "predict":
		runPredict(cmdArgs, *configPath, globals)
	case "hook":
		runHook(cmdArgs, *configPath, globals)
	case "install-hook":
		runInstallHook(cmdArgs, globals)
	case "projects":
		runProjects(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	case "stop":
		runStop(cmdArgs, *configPath, globals)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
