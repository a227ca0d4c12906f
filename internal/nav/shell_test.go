// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package nav

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/apiqgo/internal/session"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and runs any returned command synchronously, feeding its
// message back in. tea.Quit is not followed.
func send(t *testing.T, s *Shell, msg tea.Msg) {
	t.Helper()
	for msg != nil {
		_, cmd := s.Update(msg)
		if cmd == nil {
			return
		}
		msg = cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return
		}
	}
}

func newTestShell(t *testing.T, p session.Provider) *Shell {
	t.Helper()
	items := []Item{
		{Href: "/", Title: "Home", Icon: IconHome},
		{Href: "/orders", Title: "Orders"},
	}
	s := NewShell(context.Background(), View{Items: items, Path: "/orders", Selected: -1}, p)
	if cmd := s.Init(); cmd != nil {
		send(t, s, cmd())
	}
	return s
}

func TestShell_LoadsUser(t *testing.T) {
	s := newTestShell(t, session.NewStaticProvider(jane))
	require.NotNil(t, s.State().User)
	assert.Equal(t, "JD", s.State().User.Initials())
	assert.Equal(t, 1, s.State().Selected)
}

func TestShell_NoProvider(t *testing.T) {
	s := newTestShell(t, nil)
	assert.Nil(t, s.State().User)

	send(t, s, runes("u"))
	assert.False(t, s.State().MenuOpen)
}

func TestShell_SheetAndNavigation(t *testing.T) {
	s := newTestShell(t, nil)
	send(t, s, tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.False(t, s.State().Desktop())

	send(t, s, runes("m"))
	assert.True(t, s.State().SheetOpen)

	send(t, s, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, s.State().Selected)
	send(t, s, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, s.State().Selected)

	send(t, s, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "/", s.State().Path)
	assert.False(t, s.State().SheetOpen)

	send(t, s, runes("m"))
	send(t, s, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, s.State().SheetOpen)
}

func TestShell_SignOut(t *testing.T) {
	p := session.NewStaticProvider(jane)
	s := newTestShell(t, p)

	// Log out is ignored while the menu is closed.
	send(t, s, runes("l"))
	assert.NotNil(t, s.State().User)

	send(t, s, runes("u"))
	assert.True(t, s.State().MenuOpen)

	send(t, s, runes("l"))
	assert.Nil(t, s.State().User)
	assert.False(t, s.State().MenuOpen)
	assert.NoError(t, s.Err())

	_, err := p.User(context.Background())
	assert.ErrorIs(t, err, session.ErrNoUser)
}

type failingProvider struct{ session.Provider }

func (failingProvider) SignOut(context.Context) error { return errors.New("boom") }

func TestShell_SignOutError(t *testing.T) {
	s := newTestShell(t, failingProvider{session.NewStaticProvider(jane)})
	send(t, s, runes("u"))
	send(t, s, runes("l"))

	assert.EqualError(t, s.Err(), "boom")
	assert.NotNil(t, s.State().User)
}

func TestShell_Quit(t *testing.T) {
	s := newTestShell(t, nil)
	_, cmd := s.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, s.View())
}
