package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

func TestJSONKind(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		``:        "nothing",
		`  {}`:    "object",
		`[1]`:     "array",
		`"s"`:     "string",
		`null`:    "null",
		`true`:    "boolean",
		`-1.5`:    "number",
		"\n[]\n": "array",
	}

	for raw, want := range tests {
		assert.Equal(t, want, jsonKind(json.RawMessage(raw)), "input %q", raw)
	}
}

func TestDecodeItems(t *testing.T) {
	t.Parallel()

	type item struct {
		ID string `json:"id"`
	}

	items, err := decodeItems[item](json.RawMessage(`{"things":[{"id":"a"}]}`), "things")
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "a"}}, items)

	items, err = decodeItems[item](json.RawMessage(`{"things":null}`), "things")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	_, err = decodeItems[item](json.RawMessage(`{"things":{"id":"a"}}`), "things")
	require.ErrorIs(t, err, flanks.ErrUnexpectedResponse)

	_, err = decodeItems[item](json.RawMessage(`[{"id":"a"}]`), "things")
	require.ErrorIs(t, err, flanks.ErrUnexpectedResponse)

	items, err = decodeItemsLenient[item](json.RawMessage(`[{"id":"a"},{"id":"b"}]`), "things")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestDecodeString(t *testing.T) {
	t.Parallel()

	value, err := decodeString(json.RawMessage(`{"url":"https://x"}`), "url")
	require.NoError(t, err)
	assert.Equal(t, "https://x", value)

	_, err = decodeString(json.RawMessage(`{"url":5}`), "url")
	require.ErrorIs(t, err, flanks.ErrUnexpectedResponse)

	_, err = decodeString(json.RawMessage(`null`), "url")
	require.ErrorIs(t, err, flanks.ErrUnexpectedResponse)
}
