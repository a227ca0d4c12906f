// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/apiqgo/internal/meta"
	"github.com/staranto/apiqgo/internal/nav"
	"github.com/staranto/apiqgo/internal/output"
	"github.com/staranto/apiqgo/internal/session"
)

// WhoamiCommandAction shows the signed-in user.
func WhoamiCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	provider, err := newProvider(ctx, cmd)
	if err != nil {
		return err
	}
	if provider == nil {
		return ErrNoRoot
	}

	u, err := provider.User(ctx)
	if err != nil {
		return err
	}

	opts := outputOptions(cmd)
	if opts.Format != "text" {
		raw, err := json.Marshal(struct {
			*session.User
			Initials string `json:"initials"`
		}{u, u.Initials()})
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}
		return output.Emit(m.Out, raw, opts)
	}

	if cmd.Bool("menu") {
		_, err = fmt.Fprintln(m.Out, nav.RenderUserMenu(u, true, nav.SidebarWidth, navTheme()))
		return err
	}

	line := fmt.Sprintf("(%s) %s", u.Initials(), u.DisplayName())
	if u.Name != "" && u.Email != "" {
		line += " <" + u.Email + ">"
	}
	_, err = fmt.Fprintln(m.Out, line)
	return err
}

// LogoutCommandAction ends the session and drops the cached session document.
func LogoutCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	provider, err := newProvider(ctx, cmd)
	if err != nil {
		return err
	}
	if provider == nil {
		return ErrNoRoot
	}

	if err := provider.SignOut(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(m.Out, "signed out")
	return err
}

// WhoamiCommandBuilder constructs the cli.Command definition for "whoami".
func WhoamiCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "whoami",
		Usage:     "show the signed-in user",
		UsageText: `apiq whoami [options]`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "menu",
				Usage: "render the user menu",
			},
		},
		Action: WhoamiCommandAction,
		Meta:   meta,
		Source: true,
		Output: true,
	}).Build()
}

// LogoutCommandBuilder constructs the cli.Command definition for "logout".
func LogoutCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "logout",
		Usage:     "sign out of the session",
		UsageText: `apiq logout [options]`,
		Action:    LogoutCommandAction,
		Meta:      meta,
		Source:    true,
	}).Build()
}
