// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Initials(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{name: "first and last", user: &User{Name: "Jane Doe", Email: "jane@x.com"}, want: "JD"},
		{name: "email fallback", user: &User{Email: "bob@x.com"}, want: "B"},
		{name: "at most two", user: &User{Name: "Ada King Lovelace"}, want: "AK"},
		{name: "lowercase name", user: &User{Name: "grace hopper"}, want: "GH"},
		{name: "extra spaces", user: &User{Name: "  Jane   Doe "}, want: "JD"},
		{name: "single word", user: &User{Name: "Cher"}, want: "C"},
		{name: "non ascii", user: &User{Name: "émile zola"}, want: "ÉZ"},
		{name: "blank name uses email", user: &User{Name: "   ", Email: "zed@x.com"}, want: "Z"},
		{name: "nothing to go on", user: &User{}, want: ""},
		{name: "nil user", user: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Initials())
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", (&User{Name: "Jane Doe", Email: "jane@x.com"}).DisplayName())
	assert.Equal(t, "bob@x.com", (&User{Email: "bob@x.com"}).DisplayName())
	assert.Equal(t, "", (*User)(nil).DisplayName())
}
