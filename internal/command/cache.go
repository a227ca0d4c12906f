// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/cacheutil"
	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/output"
)

// CacheLsCommandAction lists persisted entries, for --root only or for every
// root.
func CacheLsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	var namespaces []string
	if root := cmd.String("root"); root != "" {
		namespaces = []string{storeNamespace(root)}
	} else {
		var err error
		if namespaces, err = cacheutil.Namespaces(); err != nil {
			return err
		}
	}

	now := time.Now()
	rows := []map[string]interface{}{}
	for _, ns := range namespaces {
		entries, err := cacheutil.NewStore(ns).List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			rows = append(rows, map[string]interface{}{
				"root":  ns,
				"key":   e.Key.Joined(),
				"size":  humanize.Bytes(uint64(e.Size)),
				"age":   humanize.RelTime(e.ModTime, now, "ago", "from now"),
				"bytes": e.Size,
				"time":  e.ModTime.Format(time.RFC3339),
			})
		}
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal cache listing: %w", err)
	}

	opts := outputOptions(cmd)
	if opts.Columns == "" && opts.Format == "text" {
		opts.Columns = "root,key,size,age"
	}
	return output.Emit(m.Out, raw, opts)
}

// CachePurgeCommandAction removes entries older than --older-than, or all of
// them with --all.
func CachePurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	maxAge := cmd.Duration("older-than")
	if cmd.Bool("all") {
		maxAge = time.Nanosecond
	}

	n, err := cacheutil.Purge(maxAge)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(m.Out, "removed %s\n", english.Plural(n, "entry", "entries"))
	return err
}

// CacheRmCommandAction removes the entry for one key under --root.
func CacheRmCommandAction(ctx context.Context, cmd *cli.Command) error {
	root := cmd.String("root")
	if root == "" {
		return ErrNoRoot
	}

	key, err := keyFromArgs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return cacheutil.NewStore(storeNamespace(root)).Remove(key)
}

// CacheCommandBuilder constructs the "cache" command and its subcommands.
func CacheCommandBuilder(meta meta.Meta) *cli.Command {
	ls := (&CommandBuilder{
		Name:      "ls",
		Usage:     "list cached resources",
		UsageText: `apiq cache ls [--root <root>] [options]`,
		Flags:     []cli.Flag{NewRootFlag("cache", meta.Config.Source)},
		Action:    CacheLsCommandAction,
		Meta:      meta,
		Output:    true,
	}).Build()

	purge := (&CommandBuilder{
		Name:      "purge",
		Usage:     "remove old cached resources",
		UsageText: `apiq cache purge [--older-than <duration>] [--all]`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "older-than",
				Usage:   "remove entries older than this",
				Sources: sourceChain("cache", "purge_age", meta.Config.Source),
				Value:   24 * time.Hour,
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "remove every entry",
			},
		},
		Action: CachePurgeCommandAction,
		Meta:   meta,
	}).Build()

	rm := (&CommandBuilder{
		Name:      "rm",
		Usage:     "remove one cached resource",
		UsageText: `apiq cache rm <segment>... [--root <root>]`,
		Flags:     []cli.Flag{NewRootFlag("cache", meta.Config.Source)},
		Action:    CacheRmCommandAction,
		Meta:      meta,
	}).Build()

	return &cli.Command{
		Name:     "cache",
		Usage:    "inspect and clean the response cache",
		Metadata: map[string]any{"meta": meta},
		Commands: []*cli.Command{ls, purge, rm},
	}
}
