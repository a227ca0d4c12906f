// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/apiqgo/internal/cacheutil"
	"github.com/staranto/apiqgo/internal/command"
	"github.com/staranto/apiqgo/internal/config"
	mylog "github.com/staranto/apiqgo/internal/log"
	"github.com/staranto/apiqgo/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	// Best-effort: pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && ok {
		// Non-fatal: print to stderr and continue.
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an argument set. "@name" anywhere after the
// command is replaced by the entries of "<command>.name" in the config file;
// without one, "<command>.defaults" is inserted right after the command. Each
// entry may hold several space-separated arguments.
func mangleArguments(args []string) []string {
	// Help is left alone.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return args
		}
	}

	out := make([]string, 2, len(args)+4)
	copy(out, args[:2])

	set := "defaults"
	at := 0
	found := false
	rest := make([]string, 0, len(args)-2)
	for _, a := range args[2:] {
		if !found && len(a) > 1 && strings.HasPrefix(a, "@") {
			set, at, found = a[1:], len(rest), true
			continue
		}
		rest = append(rest, a)
	}

	setArgs, _ := config.GetStringSlice(args[1] + "." + set)
	var expanded []string
	for _, arg := range setArgs {
		expanded = append(expanded, strings.Fields(arg)...)
	}

	// Set arguments precede what the user typed after them, so explicit flags
	// still win.
	out = append(out, rest[:at]...)
	out = append(out, expanded...)
	out = append(out, rest[at:]...)

	log.Debugf("set=%s, args=%v", set, out)
	return out
}
