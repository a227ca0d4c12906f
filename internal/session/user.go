// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxInitials caps how many letters Initials returns.
const maxInitials = 2

// User is the authenticated user record.
type User struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Image string `json:"image" yaml:"image"`
}

// Initials derives an avatar fallback. With a name it is the first letter of
// each word, uppercased, at most two. Without one it is the first letter of
// the email. A nil or empty user yields "".
func (u *User) Initials() string {
	if u == nil {
		return ""
	}

	if name := strings.TrimSpace(u.Name); name != "" {
		var b strings.Builder
		for _, word := range strings.Fields(name) {
			r, _ := utf8.DecodeRuneInString(word)
			b.WriteRune(unicode.ToUpper(r))
			if utf8.RuneCountInString(b.String()) == maxInitials {
				break
			}
		}
		return b.String()
	}

	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(u.Email)); r != utf8.RuneError {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// DisplayName is the name, or the email when there is no name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
