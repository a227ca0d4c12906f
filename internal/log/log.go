// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package log configures apex/log for apiq.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "APIQ_LOG"

// InitLogger sets up Apex with a custom handler writing to stderr and a log
// level from APIQ_LOG (default ERROR). Unknown levels fall back to ERROR.
func InitLogger() {
	log.SetHandler(NewHandler(os.Stderr))

	level, err := log.ParseLevel(strings.ToLower(os.Getenv(EnvLevel)))
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

// CustomHandler formats each entry as a single line: timestamp, one-letter
// level, message and sorted fields.
type CustomHandler struct {
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a CustomHandler writing to w.
func NewHandler(w io.Writer) *CustomHandler {
	return &CustomHandler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface.
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := h.now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", timestamp, level, e.Message)

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}

	_, err := fmt.Fprintln(h.w, b.String())
	return err
}
