package cite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for persistence and golden
// traces: object keys sorted, strings NFC-normalized, no HTML escaping,
// no floats, no null. Two equal ledgers always persist to identical bytes,
// which is what makes the round-trip property testable byte-for-byte.
func MarshalCanonical(v any) ([]byte, error) {
	return marshalValue(v)
}

func marshalValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalString(val)
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	case []any:
		return marshalArray(val)
	case map[string]any:
		return marshalObject(val)
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return marshalArray(arr)
	case map[string]int:
		obj := make(map[string]any, len(val))
		for k, n := range val {
			obj[k] = n
		}
		return marshalObject(obj)
	case Record:
		return marshalObject(recordValue(val))
	case []Record:
		arr := make([]any, len(val))
		for i, r := range val {
			arr[i] = recordValue(r)
		}
		return marshalArray(arr)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// recordValue lowers a Record to the generic object shape.
// The citation_id key is omitted while the formatter has not assigned one,
// matching the wire representation of an unconfirmed record.
func recordValue(r Record) map[string]any {
	items := make([]any, len(r.Items))
	for i, it := range r.Items {
		items[i] = it
	}
	obj := map[string]any{
		"citation_items": items,
		"properties":     map[string]any{"note_index": r.Properties.NoteIndex},
	}
	if r.ID != "" {
		obj["citation_id"] = r.ID
	}
	return obj
}

// marshalString emits a JSON string, NFC-normalized at the serialization
// boundary, without HTML escaping.
func marshalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder appends a newline; strip it.
	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out, nil
}

func marshalArray(arr []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalObject(obj map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := marshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeRecords serializes a record sequence for persistence.
func EncodeRecords(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := MarshalCanonical(records)
	if err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}
	return string(b), nil
}

// DecodeRecords parses a persisted record sequence.
func DecodeRecords(data string) ([]Record, error) {
	if data == "" || data == "[]" {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// EncodePositions serializes the citationID -> document ordinal map.
func EncodePositions(positions map[string]int) (string, error) {
	if positions == nil {
		positions = map[string]int{}
	}
	b, err := MarshalCanonical(positions)
	if err != nil {
		return "", fmt.Errorf("encode positions: %w", err)
	}
	return string(b), nil
}

// DecodePositions parses a persisted position map.
func DecodePositions(data string) (map[string]int, error) {
	if data == "" || data == "{}" {
		return map[string]int{}, nil
	}
	var positions map[string]int
	if err := json.Unmarshal([]byte(data), &positions); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	return positions, nil
}
