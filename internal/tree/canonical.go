package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces deterministic JSON for fingerprint hashing.
// This is the ONLY serialization that should feed identity computation.
//
// Differences from standard json.Marshal:
//  1. Object keys sorted lexicographically
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Numbers use the shortest round-trip representation
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil Value in canonical JSON")
	case Null:
		buf.WriteString("null")
		return nil
	case String:
		data, err := canonicalString(string(val))
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	case Number:
		buf.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
		return nil
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := canonicalString(k)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := marshalCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// canonicalString encodes a string with NFC normalization and HTML
// escaping disabled.
func canonicalString(s string) ([]byte, error) {
	// NFC normalize at the serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

// Pretty renders a value as indented JSON (2-space nesting) with sorted
// object keys, for report display.
func Pretty(v Value) string {
	var buf bytes.Buffer
	prettyValue(&buf, v, 0)
	return buf.String()
}

func prettyValue(buf *bytes.Buffer, v Value, depth int) {
	switch val := v.(type) {
	case Array:
		if len(val) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteString("[\n")
		for i, elem := range val {
			writeIndent(buf, depth+1)
			prettyValue(buf, elem, depth+1)
			if i < len(val)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte(']')
	case Object:
		if len(val) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		keys := val.SortedKeys()
		for i, k := range keys {
			writeIndent(buf, depth+1)
			keyBytes, err := canonicalString(k)
			if err != nil {
				keyBytes = []byte(strconv.Quote(k))
			}
			buf.Write(keyBytes)
			buf.WriteString(": ")
			prettyValue(buf, val[k], depth+1)
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, depth)
		buf.WriteByte('}')
	default:
		if err := marshalCanonical(buf, v); err != nil {
			buf.WriteString(fmt.Sprintf("%v", v))
		}
	}
}

func writeIndent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
