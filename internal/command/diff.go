// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/resource"
)

// ErrNoCachedCopy is returned by a one-key diff when nothing is cached for
// the key.
var ErrNoCachedCopy = errors.New("no cached copy to compare against")

// DiffCommandAction compares two bodies. With one key it compares the cached
// copy against a fresh fetch; with two keys it compares the two resources.
func DiffCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	args := cmd.Args().Slice()
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("diff takes one or two keys: %w", resource.ErrInvalidKey)
	}

	keys := make([]resource.Key, 0, len(args))
	for _, a := range args {
		k, err := resource.Parse(a)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}

	var left, right []byte
	if len(keys) == 1 {
		if rt.store == nil {
			return ErrNoCachedCopy
		}
		cached, _, ok := rt.store.Read(keys[0])
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoCachedCopy, keys[0])
		}
		left = cached

		st, err := rt.fetch(ctx, keys[0], true)
		if err != nil {
			return err
		}
		right = st.Raw
	} else {
		for i, k := range keys {
			st, err := rt.fetch(ctx, k, cmd.Bool("refresh"))
			if err != nil {
				return err
			}
			if i == 0 {
				left = st.Raw
			} else {
				right = st.Raw
			}
		}
	}

	out, changed, err := diffJSON(left, right, cmd.Bool("color"))
	if err != nil {
		return err
	}
	if !changed {
		log.Debug("diff: no differences")
		_, err = fmt.Fprintln(m.Out, "no differences")
		return err
	}

	_, err = fmt.Fprint(m.Out, out)
	return err
}

// diffJSON renders the differences between two JSON documents, objects or
// arrays, in the ascii delta format.
func diffJSON(left, right []byte, color bool) (string, bool, error) {
	var l, r interface{}
	if err := json.Unmarshal(left, &l); err != nil {
		return "", false, fmt.Errorf("failed to decode left document: %w", err)
	}
	if err := json.Unmarshal(right, &r); err != nil {
		return "", false, fmt.Errorf("failed to decode right document: %w", err)
	}

	differ := gojsondiff.New()

	var d gojsondiff.Diff
	switch lv := l.(type) {
	case map[string]interface{}:
		rv, ok := r.(map[string]interface{})
		if !ok {
			return "", false, errors.New("cannot compare an object with a non-object")
		}
		d = differ.CompareObjects(lv, rv)
	case []interface{}:
		rv, ok := r.([]interface{})
		if !ok {
			return "", false, errors.New("cannot compare an array with a non-array")
		}
		d = differ.CompareArrays(lv, rv)
	default:
		// Wrap scalars so they can be compared as objects.
		d = differ.CompareObjects(map[string]interface{}{"value": l}, map[string]interface{}{"value": r})
		l = map[string]interface{}{"value": l}
	}

	if !d.Modified() {
		return "", false, nil
	}

	f := formatter.NewAsciiFormatter(l, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	out, err := f.Format(d)
	if err != nil {
		return "", true, fmt.Errorf("failed to format diff: %w", err)
	}
	return out, true, nil
}

// DiffCommandBuilder constructs the cli.Command definition for "diff".
func DiffCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:  "diff",
		Usage: "compare a cached resource with a fresh copy, or two resources",
		UsageText: `apiq diff <key> [<key>] [options]
   apiq diff orders/7
   apiq diff orders/7 orders/8`,
		Flags: []cli.Flag{
			newRefreshFlag(),
			&cli.BoolWithInverseFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "enable colored output",
				Sources: sourceChain("diff", "color", meta.Config.Source),
			},
		},
		Action: DiffCommandAction,
		Meta:   meta,
		Source: true,
	}).Build()
}
