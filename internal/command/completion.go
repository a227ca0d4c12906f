// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/meta"
)

const bashCompletionScript = `# bash completion for apiq
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_apiq()
{
    local cur prev cmd opts
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "get diff nav whoami logout cache completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local source="--root -r --prefix --token --retries --stale"
    local render="--columns -a --color -c --filter -f --output -o --select --sort -s --titles -t"

    case "$cmd" in
        get)
            opts="$source $render --refresh --stats"
            ;;
        diff)
            opts="$source --refresh --color -c"
            ;;
        nav)
            opts="$source --path -p --width -w --open --menu --interactive -i"
            ;;
        whoami)
            opts="$source $render --menu"
            ;;
        logout)
            opts="$source"
            ;;
        cache)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "ls purge rm" -- "$cur") )
                return 0
            fi
            opts="--root -r $render --older-than --all"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            opts=""
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    fi
    return 0
}

complete -F _apiq apiq
`

const zshCompletionScript = `#compdef apiq

_apiq() {
  local -a cmds
  cmds=(
    'get:fetch a resource'
    'diff:compare a cached resource with a fresh copy, or two resources'
    'nav:render the navigation shell'
    'whoami:show the signed-in user'
    'logout:sign out of the session'
    'cache:inspect and clean the response cache'
    'completion:generate shell completion script'
  )

  local -a source render
  source=(
  '(-r --root)'{-r,--root}'[resource root]:root'
  '--prefix[path prefix]:prefix'
  '--token[bearer token]:token'
  '--retries[retries for failed requests]:retries'
  '--stale[freshness window]:duration'
  )
  render=(
  '(-a --columns)'{-a,--columns}'[columns]:columns'
  '(-c --color)'{-c,--color}'[enable colored output]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '--select[gjson path]:path'
  '(-s --sort)'{-s,--sort}'[sort columns]:columns'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'apiq commands' cmds
    return
  fi

  case $words[2] in
    get)
      _arguments -C $source $render '--refresh[ignore cache]' '--stats[print counters]' '*:segment'
      ;;
    diff)
      _arguments -C $source '--refresh[ignore cache]' '(-c --color)'{-c,--color}'[enable colored output]' '1:key' '2::key'
      ;;
    nav)
      _arguments -C $source \
        '(-p --path)'{-p,--path}'[current path]:path' \
        '(-w --width)'{-w,--width}'[layout width]:columns' \
        '--open[open the sheet]' \
        '--menu[open the user menu]' \
        '(-i --interactive)'{-i,--interactive}'[run interactively]'
      ;;
    whoami)
      _arguments -C $source $render '--menu[render the user menu]'
      ;;
    logout)
      _arguments -C $source
      ;;
    cache)
      _arguments '1: :((ls purge rm))' '*::arg:->args'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _apiq apiq
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	shell := cmd.Args().First()
	if shell == "" {
		// Try to detect from SHELL.
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(m.Out, bashCompletionScript)
	case "zsh":
		fmt.Fprint(m.Out, zshCompletionScript)
	default:
		fmt.Fprintln(m.Err, "usage: apiq completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "apiq completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
