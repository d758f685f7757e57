package entity

import (
	"bytes"
	"encoding/json"
	"slices"
)

// copyProperties returns a deep copy of props in which every value has the
// shape encoding/json produces when decoding, with integral numbers kept as
// int64. Values outside those shapes (typed slices and maps, structs,
// time.Time) are normalized through a JSON round-trip. A value that cannot be
// marshalled is kept as is so Validate reports it.
func copyProperties(props map[string]any) map[string]any {
	return copyMap(props, 1)
}

func copyMap(m map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v, depth)
	}
	return out
}

func copyValue(v any, depth int) any {
	// Left for Validate to reject; also stops on self-referencing maps
	if depth > maxPropertyDepth {
		return v
	}

	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case json.Number:
		return numberValue(val)
	case []string:
		return slices.Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item, depth+1)
		}
		return out
	case map[string]any:
		return copyMap(val, depth+1)
	default:
		normalized, err := roundTrip(val)
		if err != nil {
			return v
		}
		return copyValue(normalized, depth)
	}
}

// roundTrip re-decodes the JSON encoding of v into generic values.
func roundTrip(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
