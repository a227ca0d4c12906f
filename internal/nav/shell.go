// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package nav

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/staranto/apiqgo/internal/session"
)

type userMsg struct {
	user *session.User
	err  error
}

type signedOutMsg struct {
	err error
}

// Shell is the interactive navigation shell.
type Shell struct {
	ctx      context.Context
	provider session.Provider
	view     View
	keys     keyMap
	help     help.Model
	err      error
	quitting bool
}

// NewShell builds a shell over v. The user is loaded from p when the program
// starts; p may be nil, in which case no user menu is shown.
func NewShell(ctx context.Context, v View, p session.Provider) *Shell {
	if len(v.Items) == 0 {
		v.Items = DefaultItems
	}
	if v.Selected < 0 || v.Selected >= len(v.Items) {
		v.Selected = max(ActiveIndex(v.Items, v.Path), 0)
	}
	return &Shell{
		ctx:      ctx,
		provider: p,
		view:     v,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
}

// State returns the current frame state.
func (s *Shell) State() View { return s.view }

// Err is the last provider error, if any.
func (s *Shell) Err() error { return s.err }

func (s *Shell) Init() tea.Cmd {
	if s.provider == nil {
		return nil
	}
	return s.loadUser
}

func (s *Shell) loadUser() tea.Msg {
	u, err := s.provider.User(s.ctx)
	return userMsg{user: u, err: err}
}

func (s *Shell) signOut() tea.Msg {
	if err := s.provider.SignOut(s.ctx); err != nil {
		return signedOutMsg{err: err}
	}
	return signedOutMsg{}
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.view.Width = msg.Width
		s.help.Width = msg.Width

	case userMsg:
		s.view.User = msg.user
		if msg.err != nil && !errors.Is(msg.err, session.ErrNoUser) {
			s.err = msg.err
			log.Debugf("nav: session: %v", msg.err)
		}

	case signedOutMsg:
		if msg.err != nil {
			s.err = msg.err
			return s, nil
		}
		s.view.MenuOpen = false
		return s, s.loadUser

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	return s, nil
}

func (s *Shell) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, s.keys.Quit):
		s.quitting = true
		return s, tea.Quit

	case key.Matches(msg, s.keys.Sheet):
		if msg.String() == "esc" {
			s.view.SheetOpen = false
			s.view.MenuOpen = false
		} else {
			s.view.SheetOpen = !s.view.SheetOpen
		}

	case key.Matches(msg, s.keys.Up):
		if s.view.Selected > 0 {
			s.view.Selected--
		}

	case key.Matches(msg, s.keys.Down):
		if s.view.Selected < len(s.view.Items)-1 {
			s.view.Selected++
		}

	case key.Matches(msg, s.keys.Follow):
		if s.view.Selected >= 0 && s.view.Selected < len(s.view.Items) {
			s.view.Path = s.view.Items[s.view.Selected].Href
			s.view.SheetOpen = false
		}

	case key.Matches(msg, s.keys.Menu):
		if s.view.User != nil {
			s.view.MenuOpen = !s.view.MenuOpen
		}

	case key.Matches(msg, s.keys.LogOut):
		if s.view.MenuOpen && s.provider != nil {
			return s, s.signOut
		}
	}

	return s, nil
}

func (s *Shell) View() string {
	if s.quitting {
		return ""
	}
	return Render(s.view) + "\n\n" + s.help.View(s.keys)
}

// Run starts the shell on the terminal and returns the final path.
func Run(ctx context.Context, v View, p session.Provider) (string, error) {
	m, err := tea.NewProgram(NewShell(ctx, v, p), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", err
	}
	return m.(*Shell).view.Path, nil
}
