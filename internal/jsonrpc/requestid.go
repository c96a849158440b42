package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID represents a JSON-RPC ID that can be either a string or a number.
// Numbers are kept as their literal text so the ID is echoed back exactly as
// the peer sent it, including integers beyond float64 precision.
type RequestID struct {
	value interface{} // string | json.Number | nil
}

// NewRequestID creates a new RequestID from a string or number.
func NewRequestID(value interface{}) *RequestID {
	switch v := value.(type) {
	case string:
		return &RequestID{value: v}
	case json.Number:
		return &RequestID{value: v}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return &RequestID{value: json.Number(fmt.Sprintf("%d", v))}
	case float32:
		return &RequestID{value: json.Number(strconv.FormatFloat(float64(v), 'g', -1, 32))}
	case float64:
		return &RequestID{value: json.Number(strconv.FormatFloat(v, 'g', -1, 64))}
	default:
		return &RequestID{value: nil}
	}
}

// String returns the string representation of the ID.
func (id *RequestID) String() string {
	if id == nil || id.value == nil {
		return ""
	}

	switch v := id.value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		panic("unreachable: RequestID contains unsupported type")
	}
}

// Value returns the underlying value: a string, a json.Number, or nil.
func (id *RequestID) Value() interface{} {
	if id == nil {
		return nil
	}
	return id.value
}

// IsNil returns true if the ID is nil/empty.
func (id *RequestID) IsNil() bool {
	if id == nil {
		return true
	}

	return id.value == nil
}

// MarshalJSON implements json.Marshaler.
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id == nil || id.value == nil {
		return []byte("null"), nil
	}
	if n, ok := id.value.(json.Number); ok {
		return []byte(n.String()), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		id.value = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
	}

	switch v := v.(type) {
	case json.Number:
		id.value = v
	case string:
		id.value = v
	default:
		return fmt.Errorf("JSON-RPC ID must be a string or number, got: %s", string(data))
	}
	return nil
}
