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
	"flag"
	"fmt"
	"os"

	"github.com/nextread/nextread/internal/errors"
)

// bashCompletionTemplate is the bash completion script for nextread.
const bashCompletionTemplate = `#!/bin/bash

# Bash completion script for nextread
# Installation:
#   source <(nextread completion bash)
#   Or add to ~/.bashrc:
#   echo 'source <(nextread completion bash)' >> ~/.bashrc

_nextread_completion() {
    local cur prev commands
    commands="init index serve status rank predict hook install-hook projects reset stop completion"

    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    if [[ ${cur} == -* ]] ; then
        COMPREPLY=( $(compgen -W "--version --config --json -q --no-color" -- ${cur}) )
        return 0
    fi

    if [ $COMP_CWORD -eq 1 ]; then
        COMPREPLY=( $(compgen -W "${commands}" -- ${cur}) )
        return 0
    fi

    local cmd="${COMP_WORDS[1]}"
    case "${cmd}" in
        index)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--full --debug" -- ${cur}) )
            fi
            ;;
        serve)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--debug" -- ${cur}) )
            fi
            ;;
        status)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--json" -- ${cur}) )
            fi
            ;;
        rank)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--tag --limit --json" -- ${cur}) )
            fi
            ;;
        predict)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--intent --keywords --current-file --session --snippet-lines --json" -- ${cur}) )
            fi
            ;;
        reset)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--yes" -- ${cur}) )
            fi
            ;;
        install-hook)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--force --remove" -- ${cur}) )
            fi
            ;;
        projects)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "list enable disable remove" -- ${cur}) )
            fi
            ;;
        stop)
            if [[ ${cur} == -* ]] ; then
                COMPREPLY=( $(compgen -W "--timeout" -- ${cur}) )
            fi
            ;;
        completion)
            if [ $COMP_CWORD -eq 2 ]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
}

complete -F _nextread_completion nextread
`

// zshCompletionTemplate is the zsh completion script for nextread.
const zshCompletionTemplate = `#compdef nextread

# Zsh completion script for nextread
# Installation:
#   1. Ensure compinit is loaded (add to ~/.zshrc if not present):
#      autoload -U compinit; compinit
#   2. Save this script to a directory in your fpath:
#      nextread completion zsh > "${fpath[1]}/_nextread"
#   3. Reload completions:
#      rm -f ~/.zcompdump; compinit

_nextread() {
    local -a commands
    commands=(
        'init:Register this directory as a project'
        'index:Build or refresh the Symbol Index'
        'serve:Start the local HTTP surface'
        'status:Show index/store/tuner status'
        'rank:Query the Ranking Store'
        'predict:Query the Prediction Engine'
        'hook:Forward one intent envelope from stdin'
        'install-hook:Install git post-commit hook'
        'projects:List/enable/disable/remove registered projects'
        'reset:Reset local project data'
        'stop:Stop a running nextread serve'
        'completion:Generate shell completion script'
    )

    _arguments -C \
        '(- *)--version[Show version and exit]' \
        '--config[Path to .nextread/project.yaml]:config file:_files -g "*.yaml"' \
        '--json[Output as JSON]' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                index)
                    _arguments \
                        '--full[Full reindex (default)]' \
                        '--debug[Enable debug logging]'
                    ;;
                status)
                    _arguments \
                        '--json[Output as JSON]'
                    ;;
                rank)
                    _arguments \
                        '--tag[Restrict to paths with this tag]:tag:' \
                        '--limit[Maximum results]:limit:' \
                        '--json[Output as JSON]'
                    ;;
                predict)
                    _arguments \
                        '--intent[Free-text description of current intent]:intent:' \
                        '--keywords[Comma-separated keyword list]:keywords:' \
                        '--current-file[Path of the file currently open]:file:_files' \
                        '--session[Session id]:session:' \
                        '--json[Output as JSON]'
                    ;;
                reset)
                    _arguments \
                        '--yes[Skip confirmation prompt]'
                    ;;
                install-hook)
                    _arguments \
                        '--force[Overwrite existing hook]' \
                        '--remove[Remove the hook]'
                    ;;
                projects)
                    _arguments \
                        '1:verb:(list enable disable remove)'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_nextread
`

// fishCompletionTemplate is the fish completion script for nextread.
const fishCompletionTemplate = `# Fish completion script for nextread
# Installation:
#   1. Load completions for current session:
#      nextread completion fish | source
#   2. Install permanently:
#      nextread completion fish > ~/.config/fish/completions/nextread.fish

# Commands
complete -c nextread -f -n "__fish_use_subcommand" -a "init" -d "Register this directory as a project"
complete -c nextread -f -n "__fish_use_subcommand" -a "index" -d "Build or refresh the Symbol Index"
complete -c nextread -f -n "__fish_use_subcommand" -a "serve" -d "Start the local HTTP surface"
complete -c nextread -f -n "__fish_use_subcommand" -a "status" -d "Show index/store/tuner status"
complete -c nextread -f -n "__fish_use_subcommand" -a "rank" -d "Query the Ranking Store"
complete -c nextread -f -n "__fish_use_subcommand" -a "predict" -d "Query the Prediction Engine"
complete -c nextread -f -n "__fish_use_subcommand" -a "hook" -d "Forward one intent envelope from stdin"
complete -c nextread -f -n "__fish_use_subcommand" -a "install-hook" -d "Install git post-commit hook"
complete -c nextread -f -n "__fish_use_subcommand" -a "projects" -d "List/enable/disable/remove registered projects"
complete -c nextread -f -n "__fish_use_subcommand" -a "reset" -d "Reset local project data (destructive!)"
complete -c nextread -f -n "__fish_use_subcommand" -a "stop" -d "Stop a running nextread serve"
complete -c nextread -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"

# Global flags
complete -c nextread -l version -d "Show version and exit"
complete -c nextread -l config -d "Path to .nextread/project.yaml" -r
complete -c nextread -l json -d "Output as JSON"

# index command flags
complete -c nextread -n "__fish_seen_subcommand_from index" -l full -d "Full reindex (default)"
complete -c nextread -n "__fish_seen_subcommand_from index" -l debug -d "Enable debug logging"

# status command flags
complete -c nextread -n "__fish_seen_subcommand_from status" -l json -d "Output as JSON"

# rank command flags
complete -c nextread -n "__fish_seen_subcommand_from rank" -l tag -d "Restrict to paths with this tag" -r
complete -c nextread -n "__fish_seen_subcommand_from rank" -l limit -d "Maximum results" -r
complete -c nextread -n "__fish_seen_subcommand_from rank" -l json -d "Output as JSON"

# predict command flags
complete -c nextread -n "__fish_seen_subcommand_from predict" -l intent -d "Free-text description of current intent" -r
complete -c nextread -n "__fish_seen_subcommand_from predict" -l keywords -d "Comma-separated keyword list" -r
complete -c nextread -n "__fish_seen_subcommand_from predict" -l current-file -d "Path of the file currently open" -r
complete -c nextread -n "__fish_seen_subcommand_from predict" -l session -d "Session id" -r
complete -c nextread -n "__fish_seen_subcommand_from predict" -l json -d "Output as JSON"

# reset command flags
complete -c nextread -n "__fish_seen_subcommand_from reset" -l yes -d "Skip confirmation prompt"

# install-hook command flags
complete -c nextread -n "__fish_seen_subcommand_from install-hook" -l force -d "Overwrite existing hook"
complete -c nextread -n "__fish_seen_subcommand_from install-hook" -l remove -d "Remove the hook"

# projects command verbs
complete -c nextread -n "__fish_seen_subcommand_from projects" -f -a "list" -d "List every registered project"
complete -c nextread -n "__fish_seen_subcommand_from projects" -f -a "enable" -d "Mark a project enabled"
complete -c nextread -n "__fish_seen_subcommand_from projects" -f -a "disable" -d "Mark a project disabled"
complete -c nextread -n "__fish_seen_subcommand_from projects" -f -a "remove" -d "Forget a registered project"

# completion command arguments
complete -c nextread -n "__fish_seen_subcommand_from completion" -f -a "bash" -d "Generate bash completion script"
complete -c nextread -n "__fish_seen_subcommand_from completion" -f -a "zsh" -d "Generate zsh completion script"
complete -c nextread -n "__fish_seen_subcommand_from completion" -f -a "fish" -d "Generate fish completion script"
`

// runCompletion executes 'nextread completion <shell>', writing a
// shell-specific completion script to stdout.
func runCompletion(args []string) {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nextread completion <shell>

Description:
  Generate shell completion scripts for bash, zsh, or fish.

Arguments:
  shell    Shell type: bash, zsh, or fish (required)

Examples:
  nextread completion bash
  source <(nextread completion bash)
  nextread completion zsh > "${fpath[1]}/_nextread"
  nextread completion fish > ~/.config/fish/completions/nextread.fish

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The completion command requires exactly one argument: the shell name",
			"Run 'nextread completion bash', 'nextread completion zsh', or 'nextread completion fish'",
		), false)
	}

	shell := fs.Arg(0)

	switch shell {
	case "bash":
		fmt.Print(bashCompletionTemplate)
	case "zsh":
		fmt.Print(zshCompletionTemplate)
	case "fish":
		fmt.Print(fishCompletionTemplate)
	default:
		errors.FatalError(errors.NewInputError(
			"Unsupported shell",
			fmt.Sprintf("Shell '%s' is not supported. Valid options: bash, zsh, fish", shell),
			"Run 'nextread completion bash', 'nextread completion zsh', or 'nextread completion fish'",
		), false)
	}
}
