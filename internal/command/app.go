// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/config"
	"github.com/staranto/apiqgo/internal/meta"
)

// AppOption adjusts the app built by InitApp.
type AppOption func(*meta.Meta)

// WithWriters sends command output to out and diagnostics to errw.
func WithWriters(out, errw io.Writer) AppOption {
	return func(m *meta.Meta) {
		m.Out = out
		m.Err = errw
	}
}

// InitApp builds the apiq command tree for args.
func InitApp(ctx context.Context, args []string, opts ...AppOption) (*cli.Command, error) {
	// The arg[1] immediately following the binary is the subcommand and also
	// the namespace for config lookups. It could be -h/--help, so ignore it
	// if it looks like a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, err := config.Load(ns)
	if err != nil {
		log.Debugf("config: %v", err)
	}

	m := meta.Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
		Out:     os.Stdout,
		Err:     os.Stderr,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.Width = terminalWidth(m.Out)

	app := &cli.Command{
		Name:      "apiq",
		Usage:     "query keyed API resources through a shared cache",
		Writer:    m.Out,
		ErrWriter: m.Err,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "apiq version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		GetCommandBuilder(m),
		DiffCommandBuilder(m),
		NavCommandBuilder(m),
		WhoamiCommandBuilder(m),
		LogoutCommandBuilder(m),
		CacheCommandBuilder(m),
		CompletionCommandBuilder(m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sortFlags(cmd)
	}

	return app, nil
}

func sortFlags(cmd *cli.Command) {
	sort.Slice(cmd.Flags, func(i, j int) bool {
		return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
	})
	for _, sub := range cmd.Commands {
		sortFlags(sub)
	}
}
