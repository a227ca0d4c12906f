// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/output"
)

// GetCommandAction fetches one resource through the query cache and emits it.
func GetCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	key, err := keyFromArgs(cmd.Args().Slice())
	if err != nil {
		return err
	}
	log.Debugf("get: key=%s", key)

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("stats") {
		defer func() {
			if err := rt.writeStats(m.Err); err != nil {
				log.WithError(err).Warn("stats")
			}
		}()
	}

	st, err := rt.fetch(ctx, key, cmd.Bool("refresh"))
	if err != nil {
		return err
	}

	return output.Emit(m.Out, st.Raw, outputOptions(cmd))
}

// GetCommandBuilder constructs the cli.Command definition for "get".
func GetCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:  "get",
		Usage: "fetch a resource",
		UsageText: `apiq get <segment>... [options]
   apiq get widgets 42 -o json
   apiq get orders/7 --select items --columns sku,qty --titles`,
		Flags: []cli.Flag{
			newRefreshFlag(),
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "print cache and request counters to stderr",
			},
		},
		Action: GetCommandAction,
		Meta:   meta,
		Source: true,
		Output: true,
	}).Build()
}
