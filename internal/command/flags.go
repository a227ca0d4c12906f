// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/resource"
)

// DefaultStaleTime is how long a persisted body stays fresh for the CLI.
const DefaultStaleTime = 5 * time.Minute

// configSources returns the namespaced and then global config file sources
// for a flag name.
func configSources(ns, name, path string) []cli.ValueSource {
	var sources []cli.ValueSource
	if ns != "" {
		sources = append(sources, yaml.YAML(ns+"."+name, altsrc.StringSourcer(path)))
	}
	return append(sources, yaml.YAML(name, altsrc.StringSourcer(path)))
}

// sourceChain puts env vars ahead of the config file sources.
func sourceChain(ns, name, path string, envs ...string) cli.ValueSourceChain {
	var sources []cli.ValueSource
	for _, e := range envs {
		sources = append(sources, cli.EnvVar(e))
	}
	return cli.NewValueSourceChain(append(sources, configSources(ns, name, path)...)...)
}

// NewOutputFlags are the flags controlling how results are rendered.
func NewOutputFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "columns",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of path[:title] columns for array results",
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored output",
			Sources: sourceChain(ns, "color", path),
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to array results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, yaml, raw)",
			Sources: sourceChain(ns, "output", path, "APIQ_OUTPUT"),
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:  "select",
			Usage: "gjson path selecting part of the result",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort array results by",
			Sources: sourceChain(ns, "sort", path),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: sourceChain(ns, "titles", path),
			Value:   false,
		},
	}
}

// NewSourceFlags are the flags locating and reading the resource root.
func NewSourceFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		NewRootFlag(ns, path),
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "path prefix of the resource root",
			Sources: sourceChain(ns, "prefix", path, "APIQ_PREFIX"),
			Value:   resource.DefaultPrefix,
			Validator: func(value string) error {
				return FlagValidators(value, PrefixValidator)
			},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "bearer token sent with each request",
			Sources: sourceChain(ns, "token", path, "APIQ_TOKEN"),
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "retries for failed requests",
			Sources: sourceChain(ns, "retries", path, "APIQ_RETRIES"),
			Value:   0,
			Validator: func(value int) error {
				return FlagValidators(value, NonNegativeValidator)
			},
		},
		&cli.DurationFlag{
			Name:    "stale",
			Usage:   "how long a cached result is served without a request",
			Sources: sourceChain(ns, "stale", path, "APIQ_STALE"),
			Value:   DefaultStaleTime,
		},
	}
}

// NewRootFlag constructs the "root" flag: the base URL (http, https) or
// bucket (s3://bucket/prefix) resources are read from.
func NewRootFlag(ns, path string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "root",
		Aliases: []string{"r"},
		Usage:   "resource root, e.g. https://api.example.com or s3://bucket/prefix",
		Sources: sourceChain(ns, "root", path, "APIQ_ROOT"),
		Validator: func(value string) error {
			return FlagValidators(value, RootValidator)
		},
	}
}

func newRefreshFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "refresh",
		Usage:       "ignore cached results and fetch again",
		HideDefault: true,
	}
}
