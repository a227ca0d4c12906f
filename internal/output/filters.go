// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
)

// EnvFilterDelim overrides the "," separating filter expressions.
const EnvFilterDelim = "APIQ_FILTER_DELIM"

// filterRegex splits an expression into key, operator and target. Operators
// are one of = ^ ~ < > @ or /, optionally prefixed with '!'.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is a single parsed --filter expression. Key is a gjson path into
// the row.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a filter spec. Malformed expressions are logged and
// skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	if spec == "" {
		return filters
	}

	delim := ","
	if d, ok := os.LookupEnv(EnvFilterDelim); ok && d != "" {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil || parts[1] == "" {
			log.Error("invalid filter: " + filterSpec)
			continue
		}

		operand := parts[2]
		negate := strings.HasPrefix(operand, "!")
		if negate {
			operand = strings.TrimPrefix(operand, "!")
		}

		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: operand,
			Target:  parts[3],
		})
	}

	return filters
}

// FilterDataset returns the elements of candidates that match every filter.
func FilterDataset(candidates gjson.Result, filters []Filter) []gjson.Result {
	//nolint:prealloc
	var results []gjson.Result

	for _, candidate := range candidates.Array() {
		if Match(candidate, filters) {
			results = append(results, candidate)
		}
	}

	return results
}

// Match reports whether candidate satisfies all filters. A missing or null
// value never matches.
func Match(candidate gjson.Result, filters []Filter) bool {
	for _, filter := range filters {
		value := candidate.Get(filter.Key)
		if !value.Exists() || value.Type == gjson.Null {
			return false
		}

		var result bool
		switch {
		case filter.Operand == "@" && (value.IsArray() || value.IsObject()):
			result = checkContainsOperand(value, filter)
		case value.Type == gjson.Number:
			result = checkNumericOperand(value.Float(), filter)
		default:
			result = checkStringOperand(value.String(), filter)
		}

		if !result {
			return false
		}
	}

	return true
}

// checkContainsOperand tests membership in an array or key presence in an
// object.
func checkContainsOperand(value gjson.Result, filter Filter) bool {
	found := false
	if value.IsObject() {
		found = value.Get(escapePath(filter.Target)).Exists()
	} else {
		value.ForEach(func(_, item gjson.Result) bool {
			if item.String() == filter.Target {
				found = true
				return false
			}
			return true
		})
	}
	return found == !filter.Negate
}

// checkNumericOperand compares numerically for =, > and <. Other operands
// fall back to the string form of the number.
func checkNumericOperand(value float64, filter Filter) bool {
	switch filter.Operand {
	case "=", ">", "<":
	default:
		return checkStringOperand(strconv.FormatFloat(value, 'f', -1, 64), filter)
	}

	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) == !filter.Negate
	case ">":
		return (value > tgt) == !filter.Negate
	default:
		return (value < tgt) == !filter.Negate
	}
}

// checkStringOperand evaluates a string comparison.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error(fmt.Sprintf("unsupported filtering operand: %s", filter.Operand))
		return false
	}
}
