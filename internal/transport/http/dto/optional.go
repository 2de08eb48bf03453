package dto

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a key was present in the body, so a partial update
// can tell an omitted field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// orZero returns the value, or the zero value when absent or null.
func (o Optional[T]) orZero() T {
	var zero T
	if o.Value == nil {
		return zero
	}
	return *o.Value
}
