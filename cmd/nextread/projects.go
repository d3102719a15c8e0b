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
	"fmt"
	"os"

	"github.com/nextread/nextread/internal/ui"
	"github.com/nextread/nextread/pkg/project"
)

// runProjects executes 'nextread projects <verb>', the CLI surface
// over the process-wide registry a running 'nextread serve' consults
// to dispatch a request to any registered project by its `project`
// query parameter.
func runProjects(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		projectsUsage()
		os.Exit(1)
	}

	reg, err := project.Open(RegistryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot open project registry: %v\n", err)
		os.Exit(1)
	}

	verb, verbArgs := args[0], args[1:]
	switch verb {
	case "list":
		runProjectsList(reg, globals)
	case "enable":
		runProjectsSetEnabled(reg, verbArgs, true)
	case "disable":
		runProjectsSetEnabled(reg, verbArgs, false)
	case "remove":
		runProjectsRemove(reg, verbArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown projects verb: %s\n", verb)
		projectsUsage()
		os.Exit(1)
	}
}

func projectsUsage() {
	fmt.Fprintf(os.Stderr, `Usage: nextread projects <verb> [uuid]

Verbs:
  list              List every registered project
  enable <uuid>     Mark a project enabled (servable, indexed)
  disable <uuid>    Mark a project disabled (skipped by the registry)
  remove <uuid>     Forget a project; does not delete its data directory

Examples:
  nextread projects list
  nextread projects disable 1b7e...
`)
}

func runProjectsList(reg *project.Registry, globals GlobalFlags) {
	entries, err := reg.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot list projects: %v\n", err)
		os.Exit(1)
	}

	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(entries)
		return
	}

	ui.Header("nextread projects")
	if len(entries) == 0 {
		fmt.Println("No projects registered. Run 'nextread init' in a project directory.")
		return
	}
	for _, e := range entries {
		status := "enabled"
		if !e.Enabled {
			status = "disabled"
		}
		fmt.Printf("%s  %s  %s\n", e.UUID, status, ui.DimText(e.Path))
	}
}

func runProjectsSetEnabled(reg *project.Registry, args []string, enabled bool) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one project uuid")
		os.Exit(1)
	}
	if err := reg.SetEnabled(args[0], enabled); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	verb := "enabled"
	if !enabled {
		verb = "disabled"
	}
	ui.Success(fmt.Sprintf("Project %s %s", args[0], verb))
}

func runProjectsRemove(reg *project.Registry, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one project uuid")
		os.Exit(1)
	}
	if err := reg.Remove(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ui.Success(fmt.Sprintf("Project %s removed from the registry", args[0]))
}
