// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Column is one field of a row: a gjson path into the row and the title it
// is emitted under.
type Column struct {
	Path  string
	Title string
}

// ParseColumns parses a --columns spec of comma-separated `path[:title]`
// entries. Without a title, the last segment of the path is used.
func ParseColumns(spec string) []Column {
	var cols []Column
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		path, title, _ := strings.Cut(entry, ":")
		path = strings.TrimSpace(path)
		title = strings.TrimSpace(title)
		if title == "" {
			segments := strings.Split(path, ".")
			title = segments[len(segments)-1]
		}

		// A repeated title replaces the earlier column.
		replaced := false
		for i := range cols {
			if cols[i].Title == title {
				cols[i].Path = path
				replaced = true
				break
			}
		}
		if !replaced {
			cols = append(cols, Column{Path: path, Title: title})
		}
	}
	return cols
}

// InferColumns returns the top-level keys of the object rows in first-seen
// order. Rows that are not objects yield a single "value" column.
func InferColumns(rows []gjson.Result) []Column {
	var cols []Column
	seen := map[string]bool{}

	for _, row := range rows {
		if !row.IsObject() {
			if !seen["@this"] {
				seen["@this"] = true
				cols = append(cols, Column{Path: "@this", Title: "value"})
			}
			continue
		}
		row.ForEach(func(key, _ gjson.Result) bool {
			k := key.String()
			if !seen[k] {
				seen[k] = true
				cols = append(cols, Column{Path: escapePath(k), Title: k})
			}
			return true
		})
	}
	return cols
}

// Project extracts cols from each row.
func Project(rows []gjson.Result, cols []Column) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]interface{}, len(cols))
		for _, col := range cols {
			m[col.Title] = row.Get(col.Path).Value()
		}
		out = append(out, m)
	}
	return out
}

// escapePath quotes the gjson metacharacters in a literal key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
