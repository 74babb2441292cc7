package logs

import (
	"fmt"
	"os"
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// Format selects how a log file's framing is interpreted.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == FormatAuto || f == FormatJSON || f == FormatJSONL
}

// Load reads and parses a log file into raw records.
func Load(path string, format Format) ([]tree.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logs: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes log bytes into a sequence of object records.
//
// Real-world log dumps come in several framings: JSONL, a JSON array, a
// wrapper object holding the array, a single object, concatenated
// objects with no enclosing array, and pretty-printed multi-object
// files. Parse works through fallbacks for all of them; non-object
// entries are dropped silently as the framing layer's noise.
func Parse(data []byte, format Format) ([]tree.Value, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported log format: %q", format)
	}

	effective := format
	if format == FormatAuto {
		if strings.HasPrefix(strings.TrimLeft(string(data), " \t\r\n"), "[") {
			effective = FormatJSON
		} else {
			effective = FormatJSONL
		}
	}

	if effective == FormatJSON {
		return parseJSON(data)
	}
	return parseJSONL(data)
}

func parseJSON(data []byte) ([]tree.Value, error) {
	v, err := tree.Decode(data)
	if err != nil {
		// The file might be a multi-object list missing its brackets.
		if wrapped, werr := tree.Decode(wrapBrackets(data)); werr == nil {
			return objectsOf(wrapped), nil
		}
		if chunks := parseObjectChunks(data); len(chunks) > 0 {
			return chunks, nil
		}
		return nil, fmt.Errorf("parse JSON logs: %w", err)
	}

	switch val := v.(type) {
	case tree.Array:
		return objectsOf(val), nil
	case tree.Object:
		// Support wrapped arrays or a single entry.
		if arr, ok := val["logs"].(tree.Array); ok {
			return objectsOf(arr), nil
		}
		if arr, ok := val["data"].(tree.Array); ok {
			return objectsOf(arr), nil
		}
		return []tree.Value{val}, nil
	default:
		return nil, fmt.Errorf("JSON logs must be an array, a dict wrapping an array, or a single object")
	}
}

func parseJSONL(data []byte) ([]tree.Value, error) {
	var records []tree.Value
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := tree.Decode([]byte(line))
		if err != nil {
			continue
		}
		if obj, ok := v.(tree.Object); ok {
			records = append(records, obj)
		}
	}
	if len(records) > 0 {
		return records, nil
	}

	// The whole file might be a single pretty-printed object or array.
	if v, err := tree.Decode(data); err == nil {
		switch val := v.(type) {
		case tree.Object:
			return []tree.Value{val}, nil
		case tree.Array:
			return objectsOf(val), nil
		}
	}
	if wrapped, err := tree.Decode(wrapBrackets(data)); err == nil {
		if arr, ok := wrapped.(tree.Array); ok {
			return objectsOf(arr), nil
		}
	}
	return parseObjectChunks(data), nil
}

func objectsOf(v tree.Value) []tree.Value {
	arr, ok := v.(tree.Array)
	if !ok {
		return nil
	}
	records := make([]tree.Value, 0, len(arr))
	for _, elem := range arr {
		if obj, ok := elem.(tree.Object); ok {
			records = append(records, obj)
		}
	}
	return records
}

func wrapBrackets(data []byte) []byte {
	wrapped := make([]byte, 0, len(data)+2)
	wrapped = append(wrapped, '[')
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, ']')
	return wrapped
}

// parseObjectChunks splits concatenated or pretty-printed objects that
// lack an enclosing array by scanning for balanced top-level braces,
// honoring strings and escapes. Chunks that fail to decode are dropped.
func parseObjectChunks(data []byte) []tree.Value {
	var records []tree.Value
	depth := 0
	inString := false
	escape := false
	start := -1

	for i := 0; i < len(data); i++ {
		ch := data[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				if v, err := tree.Decode(data[start : i+1]); err == nil {
					if obj, ok := v.(tree.Object); ok {
						records = append(records, obj)
					}
				}
				start = -1
			}
		}
	}
	return records
}
