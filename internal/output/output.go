// Package output renders command results as plain text or JSON.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nhle/mxctl/internal/dates"
)

// Printer writes command results to Out, as JSON when JSON is set.
type Printer struct {
	Out  io.Writer
	JSON bool
}

// Emit prints text, or payload as JSON when JSON output was requested and a
// payload is supplied. Long-form dates anywhere in the payload are rewritten
// to ISO-8601 before encoding.
func (p Printer) Emit(text string, payload any) error {
	if p.JSON && payload != nil {
		data, err := MarshalJSON(payload)
		if err != nil {
			return err
		}
		_, err = p.Out.Write(data)
		return err
	}
	return p.Text(text)
}

// Text prints text followed by a single newline.
func (p Printer) Text(text string) error {
	_, err := fmt.Fprintln(p.Out, strings.TrimRight(text, "\n"))
	return err
}

// MarshalJSON encodes v with two-space indentation, unescaped HTML and
// normalized dates. The result ends with a newline.
func MarshalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decoding output: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NormalizeTree(tree)); err != nil {
		return nil, fmt.Errorf("encoding output: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeTree walks a decoded JSON value and rewrites every string that
// parses as a long-form date. Objects and arrays are rebuilt; other values
// are returned as-is.
func NormalizeTree(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = NormalizeTree(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = NormalizeTree(child)
		}
		return out
	case string:
		return dates.ParseLongDate(t)
	default:
		return v
	}
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-3]) + "..."
}
