package normalize

import (
	"bytes"
	"encoding/json"
)

// Shape names where in the payload the item list was found.
type Shape string

const (
	ShapeArray     Shape = "array"
	ShapeItems     Shape = "items"
	ShapeProducts  Shape = "products"
	ShapeReviews   Shape = "reviews"
	ShapeData      Shape = "data"
	ShapeDataItems Shape = "data.items"
	ShapeUnknown   Shape = "unknown"
)

// collectionKeys are probed in order, first at the top level and then inside data.
var collectionKeys = []string{"items", "products", "reviews", "notifications", "categories", "districts"}

// Items locates the item list inside a backend payload. Unknown or
// undecodable payloads yield an empty, non-nil slice and ShapeUnknown.
func Items(raw []byte) ([]any, Shape) {
	value, ok := decode(raw)
	if !ok {
		return []any{}, ShapeUnknown
	}
	return locate(value)
}

func decode(raw []byte) (any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func locate(value any) ([]any, Shape) {
	switch v := value.(type) {
	case []any:
		return v, ShapeArray
	case map[string]any:
		if list, key, ok := listUnder(v); ok {
			return list, Shape(key)
		}
		switch data := v["data"].(type) {
		case []any:
			return data, ShapeData
		case map[string]any:
			if list, key, ok := listUnder(data); ok {
				return list, Shape("data." + key)
			}
		}
	}
	return []any{}, ShapeUnknown
}

func listUnder(obj map[string]any) ([]any, string, bool) {
	for _, key := range collectionKeys {
		if list, ok := obj[key].([]any); ok {
			return list, key, true
		}
	}
	return nil, "", false
}
