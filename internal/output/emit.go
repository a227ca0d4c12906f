// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v2"

	"github.com/staranto/apiqgo/internal/config"
)

// Formats accepted by Emit.
var Formats = []string{"text", "json", "yaml", "raw"}

var (
	// ErrNotJSON is returned when a structured format is asked of a body
	// that is not JSON.
	ErrNotJSON = errors.New("response is not JSON")
	// ErrNoMatch is returned when --select matches nothing.
	ErrNoMatch = errors.New("selection matched nothing")
)

// Options controls how Emit renders a body.
type Options struct {
	Format  string
	Select  string
	Columns string
	Filter  string
	Sort    string
	Titles  bool
	Color   bool
}

// Emit writes body to w per opts. Arrays go through filtering, column
// projection and sorting; other values are emitted as they are.
func Emit(w io.Writer, body []byte, opts Options) error {
	if opts.Format == "raw" && opts.Select == "" {
		_, err := w.Write(body)
		return err
	}

	if !gjson.ValidBytes(body) {
		return ErrNotJSON
	}

	doc := gjson.ParseBytes(body)
	if opts.Select != "" {
		doc = doc.Get(opts.Select)
		if !doc.Exists() {
			return fmt.Errorf("%w: %s", ErrNoMatch, opts.Select)
		}
	}

	if doc.IsArray() {
		return emitDataset(w, doc, opts)
	}

	switch opts.Format {
	case "raw":
		_, err := io.WriteString(w, doc.Raw)
		return err
	case "json":
		return writeJSON(w, []byte(doc.Raw), opts.Color)
	case "yaml":
		return writeYAML(w, doc.Value())
	default:
		if doc.IsObject() {
			return KeyValueWriter(w, doc, opts)
		}
		_, err := fmt.Fprintln(w, InterfaceToString(doc.Value()))
		return err
	}
}

func emitDataset(w io.Writer, doc gjson.Result, opts Options) error {
	rows := FilterDataset(doc, BuildFilters(opts.Filter))

	cols := ParseColumns(opts.Columns)
	if len(cols) == 0 {
		cols = InferColumns(rows)
	}
	log.Debugf("output: %d rows, columns %v", len(rows), cols)

	dataset := Project(rows, cols)
	SortDataset(dataset, opts.Sort)

	switch opts.Format {
	case "raw", "json":
		raw, err := json.Marshal(dataset)
		if err != nil {
			return fmt.Errorf("failed to marshal dataset: %w", err)
		}
		if opts.Format == "raw" {
			_, err = w.Write(raw)
			return err
		}
		return writeJSON(w, raw, opts.Color)
	case "yaml":
		return writeYAML(w, dataset)
	default:
		return TableWriter(w, dataset, cols, opts)
	}
}

func writeJSON(w io.Writer, raw []byte, color bool) error {
	out := pretty.Pretty(raw)
	if color {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}

func writeYAML(w io.Writer, v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// TableWriter renders rows as a borderless table, one column per col.
func TableWriter(w io.Writer, rows []map[string]interface{}, cols []Column, opts Options) error {
	if len(rows) == 0 {
		return nil
	}

	data := make([][]string, 0, len(rows))
	for _, result := range rows {
		row := make([]string, 0, len(cols))
		for _, col := range cols {
			row = append(row, InterfaceToString(result[col.Title], "-"))
		}
		data = append(data, row)
	}

	var headers []string
	if opts.Titles {
		for _, col := range cols {
			headers = append(headers, col.Title)
		}
	}

	return writeTable(w, headers, data, opts.Color)
}

// KeyValueWriter renders an object as two columns, key and value.
func KeyValueWriter(w io.Writer, doc gjson.Result, opts Options) error {
	var data [][]string
	doc.ForEach(func(key, value gjson.Result) bool {
		data = append(data, []string{key.String(), InterfaceToString(value.Value(), "-")})
		return true
	})
	if len(data) == 0 {
		return nil
	}

	var headers []string
	if opts.Titles {
		headers = []string{"key", "value"}
	}

	return writeTable(w, headers, data, opts.Color)
}

func writeTable(w io.Writer, headers []string, rows [][]string, color bool) error {
	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 0)

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Rows(rows...)

	if len(headers) > 0 {
		t = t.Headers(headers...).BorderHeader(false)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// getColors returns the configured table colors.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts a decoded JSON value to its display form. nil
// and "" become the optional empty value.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	empty := ""
	if len(emptyValue) > 0 {
		empty = emptyValue[0]
	}

	if value == nil {
		return empty
	}

	switch value := value.(type) {
	case string:
		if value == "" {
			return empty
		}
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		if rv := reflect.ValueOf(value); (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map) && rv.Len() == 0 {
			return empty
		}
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
