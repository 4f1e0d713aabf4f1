package truelayer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/oapi-codegen/runtime"
)

const (
	tagType   = "type"
	tagStatus = "status"
)

// variantDecoder decodes a raw payload into one concrete variant of the union V.
type variantDecoder[V any] func(data []byte) (V, error)

// variants maps a wire tag to the decoder of its variant.
type variants[V any] map[string]variantDecoder[V]

// decodeAs builds a [variantDecoder] for the concrete variant T of union V.
func decodeAs[V any, T any](data []byte) (V, error) {
	var (
		body T
		zero V
	)
	if err := json.Unmarshal(data, &body); err != nil {
		return zero, err
	}
	v, ok := any(body).(V)
	if !ok {
		return zero, fmt.Errorf("truelayer: %T does not implement %T", body, zero)
	}
	return v, nil
}

// decodeTagged reads the tag field from data and decodes the matching variant.
// Missing or unknown tags fail with *DecodeError.
func decodeTagged[V any](union, field string, data []byte, registry variants[V]) (V, error) {
	var zero V
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return zero, &DecodeError{Union: union, Err: err}
	}
	rawTag, ok := fields[field]
	if !ok {
		return zero, &DecodeError{Union: union, Field: field, Err: errMissingTag}
	}
	var tag string
	if err := json.Unmarshal(rawTag, &tag); err != nil {
		return zero, &DecodeError{Union: union, Field: field, Err: err}
	}
	decode, ok := registry[tag]
	if !ok {
		return zero, &DecodeError{Union: union, Field: field, Tag: tag, Err: errUnknownTag}
	}
	v, err := decode(data)
	if err != nil {
		return zero, &DecodeError{Union: union, Field: field, Tag: tag, Err: err}
	}
	return v, nil
}

// requireKeys wraps next so that decoding fails when any key is absent or null.
func requireKeys[V any](next func(data []byte) (V, error), keys ...string) variantDecoder[V] {
	return func(data []byte) (V, error) {
		var zero V
		if err := checkKeys(data, keys...); err != nil {
			return zero, err
		}
		return next(data)
	}
}

// checkKeys fails with errMissingField when data lacks one of keys or holds null for it.
func checkKeys(data []byte, keys ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, key := range keys {
		if raw, ok := fields[key]; !ok || isNull(raw) {
			return fmt.Errorf("%w %q", errMissingField, key)
		}
	}
	return nil
}

// decodeObject checks keys before decoding data into the plain struct out.
func decodeObject(name string, data []byte, out any, keys ...string) error {
	if err := checkKeys(data, keys...); err != nil {
		if errors.Is(err, errMissingField) {
			return &DecodeError{Union: name, Err: err}
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// emptyIfNil makes a nil slice encode as [] for fields the wire requires as arrays.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// nilIfEmpty is the decoding counterpart of emptyIfNil.
func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}

// encodeTagged marshals v and merges the tag field into the resulting object.
func encodeTagged(union, field, tag string, v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("truelayer: %s is required", union)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tagged, err := json.Marshal(map[string]string{field: tag})
	if err != nil {
		return nil, err
	}
	merged, err := runtime.JSONMerge(body, tagged)
	if err != nil {
		return nil, fmt.Errorf("truelayer: merge %s tag: %w", union, err)
	}
	return merged, nil
}

// unionCodec (de)serializes one discriminated union.
type unionCodec[V any] struct {
	name     string
	field    string
	tag      func(V) string
	registry variants[V]
}

func (c unionCodec[V]) marshal(v V) ([]byte, error) {
	if any(v) == nil {
		return nil, fmt.Errorf("truelayer: %s is required", c.name)
	}
	return encodeTagged(c.name, c.field, c.tag(v), v)
}

// marshalOptional encodes a nil union as an empty raw message, which omitempty drops.
func (c unionCodec[V]) marshalOptional(v V) ([]byte, error) {
	if any(v) == nil {
		return nil, nil
	}
	return c.marshal(v)
}

func (c unionCodec[V]) unmarshal(data []byte) (V, error) {
	return decodeTagged(c.name, c.field, data, c.registry)
}

// unmarshalOptional decodes absent or null payloads to the zero value.
func (c unionCodec[V]) unmarshalOptional(data []byte) (V, error) {
	var zero V
	if isNull(data) {
		return zero, nil
	}
	return c.unmarshal(data)
}

func (c unionCodec[V]) marshalSlice(vs []V) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(vs))
	for _, v := range vs {
		b, err := c.marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (c unionCodec[V]) unmarshalSlice(data []byte) ([]V, error) {
	if isNull(data) {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &DecodeError{Union: c.name, Err: err}
	}
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]V, 0, len(raws))
	for _, raw := range raws {
		v, err := c.unmarshal(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// mergeObjects flattens the fields of patch into base.
func mergeObjects(base, patch []byte) ([]byte, error) {
	return runtime.JSONMerge(base, patch)
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// variantValue dereferences a variant held as a non-nil pointer, so type
// switches over union members only need value cases.
func variantValue(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
