package shared

import (
	"bytes"
	"encoding/json"
)

// OptionalID is a nullable id in a partial update body. Set is true when the
// field was present; a present null clears the stored value.
type OptionalID struct {
	Set   bool
	Value *int64
}

// SetID returns an OptionalID holding id.
func SetID(id int64) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// ClearID returns an OptionalID that clears the stored value.
func ClearID() OptionalID {
	return OptionalID{Set: true}
}

// UnmarshalJSON records presence and accepts a number or null.
func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// MarshalJSON renders the id or null.
func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
