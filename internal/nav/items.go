// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package nav

// Icon is the closed set of glyphs the shell can draw.
type Icon int

const (
	IconNone Icon = iota
	IconHome
	IconMenu
	IconUser
	IconLogOut
)

// Glyph renders the icon as a single terminal cell.
func (i Icon) Glyph() string {
	switch i {
	case IconHome:
		return "⌂"
	case IconMenu:
		return "≡"
	case IconUser:
		return "◉"
	case IconLogOut:
		return "⇥"
	}
	return " "
}

func (i Icon) String() string {
	switch i {
	case IconHome:
		return "home"
	case IconMenu:
		return "menu"
	case IconUser:
		return "user"
	case IconLogOut:
		return "log-out"
	}
	return "none"
}

// Item is one navigation link.
type Item struct {
	Href  string `yaml:"href"`
	Title string `yaml:"title"`
	Icon  Icon   `yaml:"-"`
}

// DefaultItems is the navigation shown when nothing else is configured.
var DefaultItems = []Item{
	{Href: "/", Title: "Home", Icon: IconHome},
}

// ActiveIndex returns the index of the item whose Href equals pathname, or -1.
func ActiveIndex(items []Item, pathname string) int {
	for i, item := range items {
		if item.Href == pathname {
			return i
		}
	}
	return -1
}
