package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mxctl/internal/fields"
)

func TestEmitText(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{Out: &buf}
	require.NoError(t, p.Emit("hello\n", map[string]any{"a": 1}))
	assert.Equal(t, "hello\n", buf.String())
}

func TestEmitJSONFallsBackToTextWithoutPayload(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{Out: &buf, JSON: true}
	require.NoError(t, p.Emit("plain", nil))
	assert.Equal(t, "plain\n", buf.String())
}

func TestEmitJSONNormalizesNestedDates(t *testing.T) {
	var buf bytes.Buffer
	p := Printer{Out: &buf, JSON: true}
	payload := map[string]any{
		"id":      fields.ParseID("123"),
		"subject": "<b>Deal</b> & more",
		"messages": []map[string]any{
			{"date": "Tuesday, January 14, 2026 at 2:30:00 PM"},
			{"date": "not a date"},
		},
	}
	require.NoError(t, p.Emit("ignored", payload))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(123), got["id"])
	msgs := got["messages"].([]any)
	assert.Equal(t, "2026-01-14T14:30:00", msgs[0].(map[string]any)["date"])
	assert.Equal(t, "not a date", msgs[1].(map[string]any)["date"])

	assert.Contains(t, buf.String(), `"<b>Deal</b> & more"`)
	assert.Contains(t, buf.String(), "\n  \"id\": 123")
}

func TestNormalizeTreeLeavesScalars(t *testing.T) {
	assert.Equal(t, true, NormalizeTree(true))
	assert.Nil(t, NormalizeTree(nil))
	assert.Equal(t, json.Number("5"), NormalizeTree(json.Number("5")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello...", Truncate("hello world", 8))
	assert.Equal(t, "short", Truncate("short", 8))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "héll...", Truncate("héllo wörld", 7))
}
