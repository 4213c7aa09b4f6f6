package backend

import (
	"bytes"
	"encoding/json"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Unwrap strips a {"data": ...} envelope. Payloads without one are returned
// unchanged.
func Unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if data, ok := envelope["data"]; ok && len(data) > 0 {
		return data
	}
	return trimmed
}

// Decode unwraps raw and unmarshals it into dest. Empty bodies and nil
// destinations are accepted.
func Decode(raw []byte, dest any) error {
	if dest == nil {
		return nil
	}
	payload := Unwrap(raw)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}
