package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// payloadShape is the result of inspecting a response body before decoding it
type payloadShape int

const (
	shapeInvalid payloadShape = iota
	shapeArray
	shapeEnvelope
	shapeObject
)

func (s payloadShape) String() string {
	switch s {
	case shapeArray:
		return "array"
	case shapeEnvelope:
		return "envelope"
	case shapeObject:
		return "object"
	default:
		return "invalid"
	}
}

// payload holds the parts of a body that matter for normalization
type payload struct {
	shape payloadShape
	// raw is the array for shapeArray, the data field for shapeEnvelope
	// and the whole object for shapeObject.
	raw json.RawMessage
	// errorMessage is set when the backend answered with {"error": "..."}.
	errorMessage string
}

var jsonNull = []byte("null")

// inspect classifies body as a bare array, a {"data": ...} envelope or a plain object
func inspect(body []byte) (payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return payload{}, errors.New("empty body")
	}

	switch trimmed[0] {
	case '[':
		if !json.Valid(trimmed) {
			return payload{}, errors.New("invalid JSON array")
		}
		return payload{shape: shapeArray, raw: trimmed}, nil

	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return payload{}, fmt.Errorf("invalid JSON object: %w", err)
		}

		p := payload{shape: shapeObject, raw: trimmed}
		if rawErr, ok := fields["error"]; ok {
			var msg string
			if err := json.Unmarshal(rawErr, &msg); err != nil || msg == "" {
				msg = string(rawErr)
			}
			p.errorMessage = msg
		}
		if data, ok := fields["data"]; ok {
			p.shape = shapeEnvelope
			p.raw = bytes.TrimSpace(data)
		}
		return p, nil

	default:
		return payload{}, fmt.Errorf("unexpected JSON value starting with %q", trimmed[0])
	}
}

// decodeList normalizes a list endpoint body into []T.
// Accepts a bare array or {"data": array}; {"data": null} is an empty list.
func decodeList[T any](body []byte) ([]T, error) {
	p, err := inspect(body)
	if err != nil {
		return nil, err
	}

	switch p.shape {
	case shapeArray:
	case shapeEnvelope:
		if bytes.Equal(p.raw, jsonNull) {
			return []T{}, nil
		}
		if len(p.raw) == 0 || p.raw[0] != '[' {
			return nil, errors.New("data field is not an array")
		}
	case shapeObject:
		if p.errorMessage != "" {
			return nil, fmt.Errorf("backend reported error: %s", p.errorMessage)
		}
		return nil, errors.New("expected an array or a data envelope, got an object")
	default:
		return nil, fmt.Errorf("unsupported payload shape %s", p.shape)
	}

	items := []T{}
	if err := json.Unmarshal(p.raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

// decodeObject normalizes a single-object endpoint body into T.
// Accepts a bare object or {"data": object}; arrays are rejected.
func decodeObject[T any](body []byte) (T, error) {
	var out T

	p, err := inspect(body)
	if err != nil {
		return out, err
	}

	switch p.shape {
	case shapeObject:
		if p.errorMessage != "" {
			return out, fmt.Errorf("backend reported error: %s", p.errorMessage)
		}
	case shapeEnvelope:
		if len(p.raw) == 0 || p.raw[0] != '{' {
			return out, errors.New("data field is not an object")
		}
	case shapeArray:
		return out, errors.New("expected an object, got an array")
	default:
		return out, fmt.Errorf("unsupported payload shape %s", p.shape)
	}

	if err := json.Unmarshal(p.raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode object: %w", err)
	}
	return out, nil
}
