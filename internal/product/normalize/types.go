package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Text decodes a JSON string or number into a string: strings verbatim, null
// as "", numbers as their literal. The upstream API is inconsistent about
// quoting identifiers. Objects, arrays and booleans are rejected so they can
// never become a key.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*t = Text(data)
	default:
		return fmt.Errorf("expected string or number, got %.20s", data)
	}
	return nil
}

// Flag decodes a JSON boolean, 0/1 number, or "true"/"1" string. Anything
// else reads as false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*f = true
		return nil
	case "false":
		*f = false
		return nil
	}
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		*f = false
		return nil
	}
	v, err := strconv.ParseBool(string(t))
	*f = Flag(err == nil && v)
	return nil
}

// Count decodes an optional total that may arrive as a number or a numeric
// string. Known is false when the field is absent, null or unreadable.
type Count struct {
	Value int
	Known bool
}

func (c *Count) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		*c = Count{}
		return nil
	}
	n, err := strconv.Atoi(string(t))
	if err != nil || n < 0 {
		*c = Count{}
		return nil
	}
	*c = Count{Value: n, Known: true}
	return nil
}
