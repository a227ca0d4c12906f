// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/apiqgo/internal/cacheutil"
	"github.com/staranto/apiqgo/internal/config"
	"github.com/staranto/apiqgo/internal/fetch"
	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/output"
	"github.com/staranto/apiqgo/internal/query"
	"github.com/staranto/apiqgo/internal/resource"
	"github.com/staranto/apiqgo/internal/session"
)

// ErrNoRoot is returned by commands that need a resource root when none is
// configured.
var ErrNoRoot = errors.New("no resource root: set --root, APIQ_ROOT or root in apiq.yaml")

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns a Meta writing to stdout and stderr.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd != nil && cmd.Metadata != nil {
		if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{Out: os.Stdout, Err: os.Stderr}
}

// CommandBuilder constructs a cli.Command with the metadata and the common
// flag sets wired in.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
	// Source adds the resource root flags, Output the rendering flags.
	Source bool
	Output bool
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, cb.Flags...)
	if cb.Source {
		flags = append(flags, NewSourceFlags(cb.Name, cb.Meta.Config.Source)...)
	}
	if cb.Output {
		flags = append(flags, NewOutputFlags(cb.Name, cb.Meta.Config.Source)...)
	}

	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags:  flags,
		Action: cb.Action,
	}
}

// runtime is the query stack for one invocation.
type runtime struct {
	root    string
	fetcher fetch.Fetcher
	client  *query.Client
	store   *cacheutil.Store
	metrics *prometheus.Registry
}

// newRuntime builds fetcher, cache, store and client from the source flags
// and config.
func newRuntime(ctx context.Context, cmd *cli.Command) (*runtime, error) {
	root := cmd.String("root")
	if root == "" {
		return nil, ErrNoRoot
	}

	region, _ := config.GetString("s3.region", "")
	profile, _ := config.GetString("s3.profile", "")
	endpoint, _ := config.GetString("s3.endpoint", "")
	timeout, _ := config.GetDuration("timeout", 0)
	maxBody, _ := config.GetInt("max_body", 0)

	opts := []fetch.Option{
		fetch.WithToken(cmd.String("token")),
		fetch.WithRetries(cmd.Int("retries")),
		fetch.WithS3(region, profile, endpoint),
		fetch.WithMaxBodySize(int64(maxBody)),
	}
	if timeout > 0 {
		opts = append(opts, fetch.WithTimeout(timeout))
	}

	f, err := fetch.New(ctx, root, opts...)
	if err != nil {
		return nil, err
	}

	maxEntries, _ := config.GetInt("max_entries", 0)
	gc, _ := config.GetDuration("gc", 0)
	var cacheOpts []query.CacheOption
	if maxEntries > 0 {
		cacheOpts = append(cacheOpts, query.WithMaxEntries(maxEntries))
	}
	if gc > 0 {
		cacheOpts = append(cacheOpts, query.WithGCTime(gc))
	}

	rt := &runtime{root: root, fetcher: f, metrics: prometheus.NewRegistry()}

	clientOpts := []query.Option{
		query.WithCache(query.NewCache(cacheOpts...)),
		query.WithMetrics(query.NewMetrics(rt.metrics, "apiq")),
		query.WithPrefix(cmd.String("prefix")),
		query.WithStaleTime(cmd.Duration("stale")),
	}
	if cacheutil.Enabled() {
		rt.store = cacheutil.NewStore(storeNamespace(root))
		clientOpts = append(clientOpts, query.WithStore(rt.store))
	}

	rt.client = query.NewClient(f, clientOpts...)
	log.Debugf("runtime: root=%s prefix=%s stale=%s", root, cmd.String("prefix"), cmd.Duration("stale"))
	return rt, nil
}

// storeNamespace is the cache subdirectory for a root: scheme and host, so
// two roots never share entries.
func storeNamespace(root string) string {
	u, err := url.Parse(root)
	if err != nil || u.Host == "" {
		return "default"
	}
	return strings.NewReplacer(":", "_", "/", "_").Replace(u.Scheme + "_" + u.Host)
}

// fetch runs a blocking fetch and turns an error state into an error.
func (rt *runtime) fetch(ctx context.Context, key resource.Key, refresh bool) (query.State, error) {
	var st query.State
	if refresh {
		st = rt.client.Refetch(ctx, key)
	} else {
		st = rt.client.Fetch(ctx, key)
	}

	switch {
	case st.IsError():
		return st, st.Err
	case st.IsPending():
		return st, fmt.Errorf("fetch of %s did not complete: %w", key, context.Cause(ctx))
	}
	return st, nil
}

// newProvider returns the session provider: a fixed user from config when one
// is configured, otherwise the session resource under the root. It returns
// nil when neither is available.
func newProvider(ctx context.Context, cmd *cli.Command) (session.Provider, error) {
	name, _ := config.GetString("session.user.name", "")
	email, _ := config.GetString("session.user.email", "")
	if name != "" || email != "" {
		image, _ := config.GetString("session.user.image", "")
		return session.NewStaticProvider(&session.User{Name: name, Email: email, Image: image}), nil
	}

	if cmd.String("root") == "" {
		return nil, nil
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var opts []session.ResourceOption
	if hf, ok := rt.fetcher.(*fetch.HTTPFetcher); ok {
		signOutKey := resource.MustNew("auth", "sign-out")
		signOutURL := signOutKey.URL(hf.Base(), cmd.String("prefix"))
		opts = append(opts, session.WithSignOut(session.HTTPSignOut(hf.Client(), signOutURL, cmd.String("token"))))
	}

	return session.NewResourceProvider(rt.client, opts...), nil
}

// writeStats prints every counter and histogram count gathered during the
// invocation, one "name{labels} value" line each.
func (rt *runtime) writeStats(w io.Writer) error {
	families, err := rt.metrics.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather stats: %w", err)
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%.3fs\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

// keyFromArgs reads a key from positional args. Several args are segments;
// a single arg is split on '/'.
func keyFromArgs(args []string) (resource.Key, error) {
	switch len(args) {
	case 0:
		return resource.Key{}, fmt.Errorf("missing resource key: %w", resource.ErrInvalidKey)
	case 1:
		return resource.Parse(args[0])
	default:
		return resource.New(args...)
	}
}

// outputOptions collects the rendering flags.
func outputOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format:  cmd.String("output"),
		Select:  cmd.String("select"),
		Columns: cmd.String("columns"),
		Filter:  cmd.String("filter"),
		Sort:    cmd.String("sort"),
		Titles:  cmd.Bool("titles"),
		Color:   cmd.Bool("color"),
	}
}

// terminalWidth reports the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		log.Debugf("terminal size: %v", err)
		return 0
	}
	return width
}
