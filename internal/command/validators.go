// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/staranto/apiqgo/internal/output"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'. urfave/cli allows this and there is no switch to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

func OutputValidator(value any) error {
	if !slices.Contains(output.Formats, value.(string)) {
		return fmt.Errorf("must be one of %v", output.Formats)
	}
	return nil
}

// RootValidator accepts an empty root or an absolute http, https or s3 URL.
func RootValidator(value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return fmt.Errorf("root must be an http, https or s3 URL, got %q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("root has no host: %q", s)
	}
	return nil
}

// PrefixValidator requires an empty prefix or one starting with '/'.
func PrefixValidator(value any) error {
	s := value.(string)
	if s != "" && !strings.HasPrefix(s, "/") {
		return errors.New("must begin with '/'")
	}
	return nil
}

func NonNegativeValidator(value any) error {
	if value.(int) < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
