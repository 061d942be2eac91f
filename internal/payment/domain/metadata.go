package domain

import (
	"encoding/json"
	"fmt"
)

// MetadataKind tags the value kind stored in a MetadataValue.
type MetadataKind string

// Metadata value kinds.
const (
	MetadataKindString MetadataKind = "string"
	MetadataKindNumber MetadataKind = "number"
	MetadataKindBool   MetadataKind = "bool"
	MetadataKindMap    MetadataKind = "map"
)

// MetadataValue is one entry in a payment metadata bag. The value space is a
// closed union of string, number, bool and nested map; anything richer belongs
// in a real column, not in metadata.
type MetadataValue struct {
	Kind   MetadataKind
	String string
	Number float64
	Bool   bool
	Map    Metadata
}

// Metadata is a typed key/value bag persisted as tagged JSON.
type Metadata map[string]MetadataValue

// StringValue builds a string metadata entry.
func StringValue(v string) MetadataValue {
	return MetadataValue{Kind: MetadataKindString, String: v}
}

// NumberValue builds a numeric metadata entry.
func NumberValue(v float64) MetadataValue {
	return MetadataValue{Kind: MetadataKindNumber, Number: v}
}

// BoolValue builds a boolean metadata entry.
func BoolValue(v bool) MetadataValue {
	return MetadataValue{Kind: MetadataKindBool, Bool: v}
}

// MapValue builds a nested map metadata entry.
func MapValue(v Metadata) MetadataValue {
	return MetadataValue{Kind: MetadataKindMap, Map: v}
}

type taggedValue struct {
	Kind   MetadataKind               `json:"kind"`
	String *string                    `json:"string,omitempty"`
	Number *float64                   `json:"number,omitempty"`
	Bool   *bool                      `json:"bool,omitempty"`
	Map    map[string]json.RawMessage `json:"map,omitempty"`
}

// MarshalJSON encodes the value with an explicit kind tag so decoding never has
// to guess between JSON number and bool representations.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	tagged := taggedValue{Kind: v.Kind}

	switch v.Kind {
	case MetadataKindString:
		tagged.String = &v.String
	case MetadataKindNumber:
		tagged.Number = &v.Number
	case MetadataKindBool:
		tagged.Bool = &v.Bool
	case MetadataKindMap:
		tagged.Map = make(map[string]json.RawMessage, len(v.Map))
		for key, nested := range v.Map {
			raw, err := json.Marshal(nested)
			if err != nil {
				return nil, err
			}
			tagged.Map[key] = raw
		}
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", v.Kind)
	}

	return json.Marshal(tagged)
}

// UnmarshalJSON decodes a tagged metadata value.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var tagged taggedValue
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}

	v.Kind = tagged.Kind

	switch tagged.Kind {
	case MetadataKindString:
		if tagged.String != nil {
			v.String = *tagged.String
		}
	case MetadataKindNumber:
		if tagged.Number != nil {
			v.Number = *tagged.Number
		}
	case MetadataKindBool:
		if tagged.Bool != nil {
			v.Bool = *tagged.Bool
		}
	case MetadataKindMap:
		v.Map = make(Metadata, len(tagged.Map))
		for key, raw := range tagged.Map {
			var nested MetadataValue
			if err := json.Unmarshal(raw, &nested); err != nil {
				return err
			}
			v.Map[key] = nested
		}
	default:
		return fmt.Errorf("unknown metadata kind %q", tagged.Kind)
	}

	return nil
}

// FromAny converts a loosely typed map (gateway responses, JSON bodies) into
// Metadata, dropping values outside the closed union.
func FromAny(values map[string]any) Metadata {
	md := make(Metadata, len(values))
	for key, value := range values {
		switch typed := value.(type) {
		case string:
			md[key] = StringValue(typed)
		case float64:
			md[key] = NumberValue(typed)
		case int:
			md[key] = NumberValue(float64(typed))
		case int64:
			md[key] = NumberValue(float64(typed))
		case bool:
			md[key] = BoolValue(typed)
		case map[string]any:
			md[key] = MapValue(FromAny(typed))
		}
	}
	return md
}

// MergeProvider copies gateway-supplied metadata under a "provider_" key prefix
// so provider keys never collide with caller-supplied keys.
func (m Metadata) MergeProvider(provider Metadata) Metadata {
	merged := make(Metadata, len(m)+len(provider))
	for key, value := range m {
		merged[key] = value
	}
	for key, value := range provider {
		merged["provider_"+key] = value
	}
	return merged
}
