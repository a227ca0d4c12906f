// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package nav

import (
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/staranto/apiqgo/internal/session"
)

const (
	// DesktopMinWidth is the terminal width, in columns, from which the
	// sidebar layout is used.
	DesktopMinWidth = 100
	// SidebarWidth is the width of the sidebar and of the mobile sheet.
	SidebarWidth = 28
)

// Theme holds the brand text and colors.
type Theme struct {
	Brand  string
	Accent string
	Muted  string
}

// DefaultTheme is used for zero fields of a Theme.
var DefaultTheme = Theme{
	Brand:  "apiq",
	Accent: "#f6be00",
	Muted:  "#808080",
}

func (t Theme) withDefaults() Theme {
	if t.Brand == "" {
		t.Brand = DefaultTheme.Brand
	}
	if t.Accent == "" {
		t.Accent = DefaultTheme.Accent
	}
	if t.Muted == "" {
		t.Muted = DefaultTheme.Muted
	}
	return t
}

// View is everything the shell needs to draw one frame.
type View struct {
	Items     []Item
	Path      string
	User      *session.User
	Theme     Theme
	Width     int
	SheetOpen bool
	MenuOpen  bool
	// Selected is the keyboard cursor; -1 means none.
	Selected int
}

// Desktop reports whether the sidebar layout applies.
func (v View) Desktop() bool {
	return v.Width >= DesktopMinWidth
}

// Render draws the shell: a bordered sidebar on desktop; on mobile, a top bar
// with the brand and menu trigger, followed by the sheet when it is open.
func Render(v View) string {
	v.Theme = v.Theme.withDefaults()

	if v.Desktop() {
		return lipgloss.NewStyle().
			Width(SidebarWidth).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color(v.Theme.Muted)).
			Render(content(v))
	}

	bar := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(v.Theme.Accent)).
		Render(v.Theme.Brand) + "  " + IconMenu.Glyph()
	bar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color(v.Theme.Muted)).
		Render(bar)

	if !v.SheetOpen {
		return bar
	}

	sheet := lipgloss.NewStyle().
		Width(SidebarWidth).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(v.Theme.Muted)).
		Render(content(v))

	return lipgloss.JoinVertical(lipgloss.Left, bar, sheet)
}

// content is the sidebar body shared by both layouts: header, links and the
// user menu at the bottom.
func content(v View) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Render(v.Theme.Brand)

	active := ActiveIndex(v.Items, v.Path)

	lines := []string{header, ""}
	for i, item := range v.Items {
		style := lipgloss.NewStyle().Padding(0, 1)
		if i == active {
			style = style.Bold(true).Foreground(lipgloss.Color(v.Theme.Accent))
		}
		cursor := " "
		if i == v.Selected {
			cursor = ">"
		}
		lines = append(lines, cursor+style.Render(item.Icon.Glyph()+" "+item.Title))
	}

	if v.User != nil {
		lines = append(lines, "", " "+RenderUserMenu(v.User, v.MenuOpen, SidebarWidth, v.Theme))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
