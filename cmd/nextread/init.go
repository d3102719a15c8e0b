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
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextread/nextread/internal/ui"
	"github.com/nextread/nextread/pkg/project"
)

// initFlags holds parsed flags for the 'init' command.
type initFlags struct {
	force, nonInteractive, noHook, withHook bool
	projectID, backendKind, redisAddr       string
}

// runInit executes 'nextread init', writing .nextread/project.yaml for
// the current directory and optionally installing a git post-commit
// hook that runs a full re-index in the background after each commit.
func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := createInitConfig(cwd, flags)
	reader := bufio.NewReader(os.Stdin)

	if !flags.nonInteractive {
		runInteractiveConfig(reader, &cfg)
	}

	saveInitConfig(cwd, cfg)
	registerProject(cwd)
	handleHookInstallation(reader, flags)
	printNextSteps(flags.noHook)
}

// registerProject adds cwd to the process-wide projects.json registry
// so 'nextread serve' can dispatch requests to it by uuid even when
// it is not the project bound to the CWD a given server was started
// in ( "a projects.json registry of {uuid, path, enabled}").
// Registration failures are warnings, not fatal: the project still
// works standalone via its own 'nextread serve'.
func registerProject(cwd string) {
	reg, err := project.Open(RegistryPath())
	if err != nil {
		ui.Warning(fmt.Sprintf("cannot open project registry: %v", err))
		return
	}
	entry, err := reg.Register(cwd)
	if err != nil {
		ui.Warning(fmt.Sprintf("cannot register project: %v", err))
		return
	}
	ui.Success(fmt.Sprintf("Registered project %s", entry.UUID))
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVar(&f.nonInteractive, "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.projectID, "project-id", "", "Project identifier")
	fs.StringVar(&f.backendKind, "backend", "", "Ranking Store backend (badger, redis)")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Redis address (only with --backend redis)")
	fs.BoolVar(&f.noHook, "no-hook", false, "Skip git hook installation (hook is installed by default)")
	fs.BoolVar(&f.withHook, "hook", false, "Install git hook without prompting (for scripts)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread init [options]

Creates .nextread/project.yaml configuration file.

Examples:
  nextread init                     Interactive setup
  nextread init -y                  Non-interactive, use all defaults
  nextread init --backend redis --redis-addr localhost:6379
  nextread init --hook              Also install git hook

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) Config {
	pid := f.projectID
	if pid == "" {
		pid = filepath.Base(cwd)
	}
	cfg := DefaultConfig(pid, cwd)
	if f.backendKind != "" {
		cfg.Backend.Kind = f.backendKind
	}
	if f.redisAddr != "" {
		cfg.Backend.RedisAddr = f.redisAddr
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	ui.Header("nextread project configuration")

	cfg.ProjectID = prompt(reader, "Project ID", cfg.ProjectID)
	cfg.HTTPAddr = prompt(reader, "HTTP listen address", cfg.HTTPAddr)

	fmt.Println()
	fmt.Println("Ranking Store backends: badger (embedded, default), redis")
	cfg.Backend.Kind = prompt(reader, "Backend", cfg.Backend.Kind)
	if cfg.Backend.Kind == "redis" {
		addr := cfg.Backend.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		cfg.Backend.RedisAddr = prompt(reader, "Redis address", addr)
	}
	fmt.Println()
}

func saveInitConfig(cwd string, cfg Config) {
	if err := os.MkdirAll(ConfigDir(cwd), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create .nextread directory: %v\n", err)
		os.Exit(1)
	}
	if err := SaveConfig(cwd, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	ui.Success(fmt.Sprintf("Created %s", ConfigPath(cwd)))
	addToGitignore(cwd)
}

func handleHookInstallation(reader *bufio.Reader, f initFlags) {
	if f.noHook {
		return
	}
	shouldInstall := f.withHook
	if !f.withHook && !f.nonInteractive {
		fmt.Println()
		hookAnswer := prompt(reader, "Install git hook for auto-indexing? (Y/n)", "y")
		hookAnswer = strings.ToLower(strings.TrimSpace(hookAnswer))
		shouldInstall = hookAnswer != "n" && hookAnswer != "no"
	} else if f.nonInteractive {
		shouldInstall = true
	}

	if !shouldInstall {
		return
	}
	gitDir, err := findGitDir()
	if err != nil {
		ui.Warning(fmt.Sprintf("cannot find .git directory: %v", err))
		return
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")
	if err := installHook(hookPath, false); err != nil {
		ui.Warning(fmt.Sprintf("cannot install git hook: %v", err))
	} else {
		ui.Success(fmt.Sprintf("Git hook installed: %s", hookPath))
	}
}

func printNextSteps(noHook bool) {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .nextread/project.yaml if needed")
	fmt.Println("  2. Run 'nextread index --full' to build the Symbol Index")
	fmt.Println("  3. Run 'nextread serve &' to start the local HTTP surface")
	fmt.Println("  4. Run 'nextread status' to verify")
	if noHook {
		fmt.Println()
		fmt.Println("Tip: Run 'nextread install-hook' to enable auto-indexing on each commit")
	}
}

// prompt displays an interactive prompt and reads user input from stdin,
// returning defaultValue if the user presses Enter without typing anything.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .nextread/ to the project's .gitignore if not
// already present. Silently returns if .gitignore does not exist.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}

	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == ".nextread/" || line == ".nextread" || line == "/.nextread/" || line == "/.nextread" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}

	_, _ = f.WriteString("\n# nextread configuration\n.nextread/\n")
	fmt.Println("Added .nextread/ to .gitignore")
}
