// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/config"
	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/nav"
	"github.com/staranto/apiqgo/internal/session"
)

// NavCommandAction renders the navigation shell for --path, or runs it
// interactively with --interactive.
func NavCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	provider, err := newProvider(ctx, cmd)
	if err != nil {
		return err
	}

	v := nav.View{
		Items:     navItems(),
		Path:      cmd.String("path"),
		Theme:     navTheme(),
		Width:     cmd.Int("width"),
		SheetOpen: cmd.Bool("open"),
		MenuOpen:  cmd.Bool("menu"),
		Selected:  -1,
	}
	if v.Width == 0 {
		v.Width = m.Width
	}

	if cmd.Bool("interactive") {
		path, err := nav.Run(ctx, v, provider)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(m.Out, path)
		return err
	}

	if provider != nil {
		u, err := provider.User(ctx)
		switch {
		case err == nil:
			v.User = u
		case errors.Is(err, session.ErrNoUser):
		default:
			// The shell still renders without a user menu.
			log.WithError(err).Warn("failed to load session")
		}
	}

	_, err = fmt.Fprintln(m.Out, nav.Render(v))
	return err
}

// navItems reads the items list from config, falling back to the default
// navigation.
func navItems() []nav.Item {
	raw, err := config.GetMapSlice("items")
	if err != nil {
		return nav.DefaultItems
	}

	icons := map[string]nav.Icon{
		"home":    nav.IconHome,
		"menu":    nav.IconMenu,
		"user":    nav.IconUser,
		"log-out": nav.IconLogOut,
	}

	var items []nav.Item
	for _, r := range raw {
		href, _ := r["href"].(string)
		title, _ := r["title"].(string)
		if href == "" || title == "" {
			log.Warnf("skipping nav item %v: href and title are required", r)
			continue
		}
		icon, _ := r["icon"].(string)
		items = append(items, nav.Item{Href: href, Title: title, Icon: icons[icon]})
	}
	if len(items) == 0 {
		return nav.DefaultItems
	}
	return items
}

func navTheme() nav.Theme {
	brand, _ := config.GetString("brand", nav.DefaultTheme.Brand)
	accent, _ := config.GetString("colors.title", nav.DefaultTheme.Accent)
	return nav.Theme{Brand: brand, Accent: accent}
}

// NavCommandBuilder constructs the cli.Command definition for "nav".
func NavCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:  "nav",
		Usage: "render the navigation shell",
		UsageText: `apiq nav [options]
   apiq nav --path /orders
   apiq nav --interactive`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "current pathname, highlights the matching item",
				Value:   "/",
			},
			&cli.IntFlag{
				Name:    "width",
				Aliases: []string{"w"},
				Usage:   "layout width in columns, 0 detects the terminal",
				Validator: func(value int) error {
					return FlagValidators(value, NonNegativeValidator)
				},
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "render the mobile sheet open",
			},
			&cli.BoolFlag{
				Name:  "menu",
				Usage: "render the user menu open",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "run the shell interactively",
			},
		},
		Action: NavCommandAction,
		Meta:   meta,
		Source: true,
	}).Build()
}
