// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/meta"
)

const bashCompletionScript = `# bash completion for saasctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_saasctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "companies users employees plans settings analytics dashboard create update delete upload batch policies completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local output="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --stats --preload --singleflight"
    local conn="--host -H --token --retries --timeout"
    local resources="companies users employees plans settings analytics dashboard"

    case "$cmd" in
        companies|users|employees|plans|settings|analytics|dashboard)
            local opts="$output $conn --id --query -q"
            ;;
        create)
            local opts="$output $conn --data -d"
            ;;
        update)
            local opts="$output $conn --id --data -d --patch"
            ;;
        delete)
            local opts="$output $conn --id"
            ;;
        upload)
            local opts="$output $conn --id --file --field --form"
            ;;
        batch)
            local opts="$output $conn --fail-fast --metrics-addr"
            ;;
        policies)
            local opts="$output --shadows"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$output"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--file" || ( "$cmd" == "batch" && "$cur" != -* ) ]]; then
        COMPREPLY=( $(compgen -f -- "$cur") )
        return 0
    fi

    case "$cmd" in
        create|update|delete|upload)
            if [[ ${COMP_CWORD} -eq 2 && "$cur" != -* ]]; then
                COMPREPLY=( $(compgen -W "$resources" -- "$cur") )
                return 0
            fi
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _saasctl saasctl
`

const zshCompletionScript = `#compdef saasctl

_saasctl() {
  local -a cmds
  cmds=(
    'companies:company query'
    'users:user query'
    'employees:employee query'
    'plans:subscription plan query'
    'settings:platform settings query'
    'analytics:analytics query'
    'dashboard:dashboard stats query'
    'create:create a record'
    'update:replace or patch a record'
    'delete:delete a record'
    'upload:upload a file as multipart form data'
    'batch:run many requests through one cache'
    'policies:show the cache policy table'
    'completion:generate shell completion script'
  )

  local -a output
  output=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--stats[print cache tier statistics]'
  '--preload[warm the cache first]'
  '--singleflight[share concurrent cold reads]'
  )

  local -a conn
  conn=(
  '(-H --host)'{-H,--host}'[API base URL]:url'
  '--token[bearer token]:token'
  '--retries[retries for failed requests]:count'
  '--timeout[per request timeout]:duration'
  )

  local resources='(companies users employees plans settings analytics dashboard)'

  if (( CURRENT == 2 )); then
    _describe -t commands 'saasctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    companies|users|employees|plans|settings|analytics|dashboard)
      _arguments -C $output $conn '--id[record id]:id' '*'{-q,--query}'[query parameter]:key=value'
      ;;
    create)
      _arguments -C $output $conn '(-d --data)'{-d,--data}'[JSON body]:json' "1:resource:$resources"
      ;;
    update)
      _arguments -C $output $conn '--id[record id]:id' '(-d --data)'{-d,--data}'[JSON body]:json' '--patch[send PATCH]' "1:resource:$resources"
      ;;
    delete)
      _arguments -C $output $conn '--id[record id]:id' "1:resource:$resources"
      ;;
    upload)
      _arguments -C $output $conn '--id[record id]:id' '--file[file to upload]:file:_files' '--field[form field]:name' '*--form[form field]:key=value' "1:resource:$resources"
      ;;
    batch)
      _arguments -C $output $conn '--fail-fast[stop at first failure]' '--metrics-addr[metrics address]:addr' '1:batch file:_files'
      ;;
    policies)
      _arguments -C $output '--shadows[only shadowed policies]' '*:url'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $output
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _saasctl saasctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := writer(cmd)
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
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		return fmt.Errorf("usage: saasctl completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "saasctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
