package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}

	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}

func unexpected(want string, raw json.RawMessage) error {
	return fmt.Errorf("%w: expected %s, got %s", flanks.ErrUnexpectedResponse, want, jsonKind(raw))
}

// decodeEnvelope requires raw to be a JSON object.
func decodeEnvelope(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if jsonKind(raw) != "object" {
		return nil, unexpected("object", raw)
	}

	var envelope map[string]json.RawMessage

	err := json.Unmarshal(raw, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", flanks.ErrUnexpectedResponse, err)
	}

	return envelope, nil
}

// decodeObject decodes a JSON object response into T.
func decodeObject[T any](raw json.RawMessage) (*T, error) {
	if jsonKind(raw) != "object" {
		return nil, unexpected("object", raw)
	}

	var value T

	err := json.Unmarshal(raw, &value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", flanks.ErrUnexpectedResponse, err)
	}

	return &value, nil
}

// decodeField decodes the object stored under key in a JSON object response.
func decodeField[T any](raw json.RawMessage, key string) (*T, error) {
	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	field, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", flanks.ErrUnexpectedResponse, key)
	}

	return decodeObject[T](field)
}

// decodeString returns the string stored under key in a JSON object response.
func decodeString(raw json.RawMessage, key string) (string, error) {
	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return "", err
	}

	field, ok := envelope[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", flanks.ErrUnexpectedResponse, key)
	}

	var value string

	err = json.Unmarshal(field, &value)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not a string", flanks.ErrUnexpectedResponse, key)
	}

	return value, nil
}

// decodeItems decodes a list from an object response, where the items live under
// key. A missing or null key yields an empty list.
func decodeItems[T any](raw json.RawMessage, key string) ([]T, error) {
	envelope, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	return decodeList[T](envelope[key], key)
}

// decodeItemsLenient accepts either a bare JSON array or an object holding the
// list under key.
func decodeItemsLenient[T any](raw json.RawMessage, key string) ([]T, error) {
	if jsonKind(raw) == "array" {
		return decodeList[T](raw, key)
	}

	return decodeItems[T](raw, key)
}

func decodeList[T any](raw json.RawMessage, what string) ([]T, error) {
	switch jsonKind(raw) {
	case "nothing", "null":
		return []T{}, nil
	case "array":
	default:
		return nil, fmt.Errorf("%w: %s: expected array, got %s", flanks.ErrUnexpectedResponse, what, jsonKind(raw))
	}

	var items []T

	err := json.Unmarshal(raw, &items)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", flanks.ErrUnexpectedResponse, what, err)
	}

	if items == nil {
		items = []T{}
	}

	return items, nil
}

// queryBody wraps an optional query value as {"query": ...}, sending an empty
// object when query is absent.
func queryBody(query interface{}, present bool) map[string]interface{} {
	if !present {
		return map[string]interface{}{"query": map[string]interface{}{}}
	}

	return map[string]interface{}{"query": query}
}
