// Package jsonutil renders scrape results for human eyes: a compact,
// colorized form suitable for a terminal, as opposed to the plain JSON the
// library callers get back. It mirrors internal/jsonutil's approach in the
// teacher repo: reflect over field names with fatih/structs, then format
// each value with hokaccha/go-prettyjson.
package jsonutil

import (
	"bytes"
	"sort"
	"strings"

	"github.com/fatih/structs"
	"github.com/hokaccha/go-prettyjson"
)

var formatter *prettyjson.Formatter

func init() {
	formatter = prettyjson.NewFormatter()
	formatter.Indent = 2
	formatter.Newline = "\n"
}

// MarshalCompactPretty formats v's exported fields as colorized,
// alphabetically-sorted "name: value" lines.
func MarshalCompactPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	m := structs.Map(v)
	names := structs.Names(v)
	sort.Slice(names, func(i, j int) bool { return strings.Compare(names[i], names[j]) == -1 })
	for _, name := range names {
		val := m[name]
		b, err := formatter.Marshal(val)
		if err != nil {
			return nil, err
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.Write(b)
		buf.WriteRune('\n')
	}
	return buf.Bytes(), nil
}
