package export

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// maxSheetName is Excel's sheet name length limit
	maxSheetName = 31
	// maxCellText is Excel's cell text length limit
	maxCellText = 32767
)

// Front columns come first in every sheet, the rest are sorted
var frontColumns = []string{"project_name", "project_id"}

var illegalSheetChars = regexp.MustCompile(`[\[\]:*?/\\]`)

// Flatten turns nested objects into dotted keys. Arrays are kept as JSON
// text so each item stays a single row.
func Flatten(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto(out, obj, "")
	return out
}

func flattenInto(out map[string]interface{}, obj map[string]interface{}, prefix string) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			flattenInto(out, val, key)
		case []interface{}:
			data, err := json.Marshal(val)
			if err != nil {
				out[key] = ""
				continue
			}
			out[key] = string(data)
		default:
			out[key] = val
		}
	}
}

// Columns returns the union of row keys with the front columns first and
// the rest sorted
func Columns(rows []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, f := range frontColumns {
		seen[f] = struct{}{}
	}

	var rest []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	return append(append([]string(nil), frontColumns...), rest...)
}

// cellValue converts a decoded JSON value into something a cell can hold
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case string:
		if len(val) > maxCellText {
			return truncateRunes(val, maxCellText)
		}
		return val
	default:
		return val
	}
}

// SheetName makes name legal as an Excel sheet name
func SheetName(name string) string {
	cleaned := illegalSheetChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "'")
	if cleaned == "" {
		cleaned = "Sheet"
	}
	return truncateRunes(cleaned, maxSheetName)
}

// UniqueSheetName returns a legal sheet name not yet in taken and records
// it. Excel compares sheet names case-insensitively.
func UniqueSheetName(base string, taken map[string]bool) string {
	name := SheetName(base)
	if !taken[strings.ToLower(name)] {
		taken[strings.ToLower(name)] = true
		return name
	}

	for i := 2; ; i++ {
		suffix := "_" + strconv.Itoa(i)
		candidate := truncateRunes(name, maxSheetName-len(suffix)) + suffix
		if !taken[strings.ToLower(candidate)] {
			taken[strings.ToLower(candidate)] = true
			return candidate
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
