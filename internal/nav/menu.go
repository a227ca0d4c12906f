// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package nav

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/staranto/apiqgo/internal/session"
)

// EntryKind tags a user menu entry.
type EntryKind int

const (
	EntryLabel EntryKind = iota
	EntrySeparator
	EntryAction
)

// Action is what selecting an EntryAction does.
type Action int

const (
	ActionNone Action = iota
	ActionProfile
	ActionSignOut
)

// MenuEntry is one line of the user menu.
type MenuEntry struct {
	Kind   EntryKind
	Title  string
	Detail string
	Icon   Icon
	Action Action
}

// UserMenuEntries lists the dropdown for u. There is no menu without a user.
func UserMenuEntries(u *session.User) []MenuEntry {
	if u == nil {
		return nil
	}
	return []MenuEntry{
		{Kind: EntryLabel, Title: u.Name, Detail: u.Email},
		{Kind: EntrySeparator},
		{Kind: EntryAction, Title: "Profile", Icon: IconUser, Action: ActionProfile},
		{Kind: EntrySeparator},
		{Kind: EntryAction, Title: "Log out", Icon: IconLogOut, Action: ActionSignOut},
	}
}

// Avatar is the menu trigger: the initials in brackets.
func Avatar(u *session.User, theme Theme) string {
	if u == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Accent)).
		Render("(" + u.Initials() + ")")
}

// RenderUserMenu draws the trigger and, when open, the dropdown below it. It
// is empty without a user.
func RenderUserMenu(u *session.User, open bool, width int, theme Theme) string {
	if u == nil {
		return ""
	}

	trigger := Avatar(u, theme)
	if !open {
		return trigger
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Muted))
	sep := muted.Render(strings.Repeat("─", max(width-2, 1)))

	var lines []string
	for _, e := range UserMenuEntries(u) {
		switch e.Kind {
		case EntryLabel:
			if e.Title != "" {
				lines = append(lines, lipgloss.NewStyle().Bold(true).Render(e.Title))
			}
			lines = append(lines, muted.Render(e.Detail))
		case EntrySeparator:
			lines = append(lines, sep)
		case EntryAction:
			lines = append(lines, e.Icon.Glyph()+" "+e.Title)
		}
	}

	menu := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Muted)).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	return lipgloss.JoinVertical(lipgloss.Left, trigger, menu)
}
