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
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// postCommitHookContent is installed at .git/hooks/post-commit. A live
// watcher (pkg/symbolindex.Watcher) already covers the common case; the
// post-commit hook only forces a full re-walk to pick up renames and deletes the
// watcher's debounce window may have coalesced away.
const postCommitHookContent = `#!/bin/sh
# nextread auto-index hook - forces a fresh Symbol Index snapshot
# Installed by: nextread install-hook
# Remove with: nextread install-hook --remove

nextread index >/dev/null 2>&1 &
`

// runHook implements 'nextread hook': read one JSON intent envelope
// from stdin and forward it to the
// running daemon. This is the process a host assistant's own hook
// configuration execs on every prompt submission and tool-use; reading
// and parsing the hook configuration format itself is out of scope
// — nextread only owns this thin transport shim.
func runHook(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("hook", flag.ExitOnError)
	timeoutMS := fs.Int("timeout-ms", 200, "Request timeout in milliseconds")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread hook [options]

Reads one JSON intent envelope from stdin and POSTs it to the running
'nextread serve' daemon's /intent endpoint. Exits 0 even on failure,
since a hook invocation must never block or fail the caller's own
tool-use or prompt-submit flow.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return
	}

	body, err := io.ReadAll(io.LimitReader(os.Stdin, 4<<20))
	if err != nil {
		return
	}

	client := &http.Client{Timeout: time.Duration(*timeoutMS) * time.Millisecond}
	url := fmt.Sprintf("http://%s/intent", cfg.HTTPAddr)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	defer func() { _ = resp.Body.Close() }()
}

// runInstallHook executes 'nextread install-hook', installing or
// removing a git post-commit hook per --remove.
func runInstallHook(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("install-hook", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread install-hook [options]

Installs a git post-commit hook that forces a full Symbol Index
re-walk after each commit, to catch renames and deletes the live
watcher's debounce window may miss.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	gitDir, err := findGitDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := removeHook(hookPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Git hook removed successfully.")
		return
	}

	if err := installHook(hookPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Git hook installed: %s\n", hookPath)
}

// findGitDir walks up from the current directory looking for .git.
func findGitDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath)
			if err != nil {
				return "", fmt.Errorf("cannot read .git file: %w", err)
			}
			var gitdir string
			if _, err := fmt.Sscanf(string(content), "gitdir: %s", &gitdir); err == nil {
				if filepath.IsAbs(gitdir) {
					return gitdir, nil
				}
				return filepath.Join(dir, gitdir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a git repository (or any of the parent directories)")
}

// installHook writes postCommitHookContent to hookPath, refusing to
// clobber a non-nextread hook unless force is set.
func installHook(hookPath string, force bool) error {
	hookDir := filepath.Dir(hookPath)
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		return fmt.Errorf("cannot create hooks directory: %w", err)
	}

	if _, err := os.Stat(hookPath); err == nil {
		if !force {
			content, err := os.ReadFile(hookPath)
			if err == nil && containsNextreadMarker(string(content)) {
				fmt.Println("nextread hook already installed. Use --force to reinstall.")
				return nil
			}
			return fmt.Errorf("hook already exists at %s\nUse --force to overwrite", hookPath)
		}
	}

	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o755); err != nil {
		return fmt.Errorf("cannot write hook: %w", err)
	}

	return nil
}

// removeHook removes hookPath if it carries the nextread marker,
// protecting a user's own hook from accidental removal.
func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook found at %s", hookPath)
		}
		return fmt.Errorf("cannot read hook: %w", err)
	}

	if !containsNextreadMarker(string(content)) {
		return fmt.Errorf("hook at %s was not installed by nextread\nManually remove it if needed", hookPath)
	}

	if err := os.Remove(hookPath); err != nil {
		return fmt.Errorf("cannot remove hook: %w", err)
	}

	return nil
}

func containsNextreadMarker(content string) bool {
	const marker = "# nextread auto-index hoo"
	for i := 0; i+len(marker) <= len(content); i++ {
		if content[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

// IsHookInstalled reports whether the nextread git hook is currently
// installed for the repository containing the current directory.
func IsHookInstalled() bool {
	gitDir, err := findGitDir()
	if err != nil {
		return false
	}

	hookPath := filepath.Join(gitDir, "hooks", "post-commit")
	content, err := os.ReadFile(hookPath)
	if err != nil {
		return false
	}

	return containsNextreadMarker(string(content))
}
