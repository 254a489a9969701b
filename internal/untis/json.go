package untis

import "encoding/json"

// object wraps one level of a decoded JSON object so that every required
// field access is a fallible lookup carrying the field name into the error.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage, field string) (object, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, typeMismatch(field, "object")
	}
	// Unmarshal leaves the map nil for a literal null.
	if o == nil {
		return nil, typeMismatch(field, "object")
	}
	return o, nil
}

func (o object) object(field string) (object, error) {
	raw, ok := o[field]
	if !ok {
		return nil, missingField(field)
	}
	return decodeObject(raw, field)
}

func (o object) array(field string) ([]json.RawMessage, error) {
	raw, ok := o[field]
	if !ok {
		return nil, missingField(field)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, typeMismatch(field, "array")
	}
	if items == nil {
		return nil, typeMismatch(field, "array")
	}
	return items, nil
}

func (o object) integer(field string) (int64, error) {
	raw, ok := o[field]
	if !ok {
		return 0, missingField(field)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, typeMismatch(field, "integer")
	}
	v, err := n.Int64()
	if err != nil {
		return 0, typeMismatch(field, "integer")
	}
	return v, nil
}

func (o object) str(field string) (string, error) {
	raw, ok := o[field]
	if !ok {
		return "", missingField(field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", typeMismatch(field, "string")
	}
	return s, nil
}

func (o object) boolean(field string) (bool, error) {
	raw, ok := o[field]
	if !ok {
		return false, missingField(field)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, typeMismatch(field, "boolean")
	}
	return b, nil
}

// optionalStr returns nil when the field is absent; a present field must
// still be a string.
func (o object) optionalStr(field string) (*string, error) {
	raw, ok := o[field]
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, typeMismatch(field, "string")
	}
	return &s, nil
}
