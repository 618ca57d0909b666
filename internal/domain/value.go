package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
)

// Value is a single typed note field value.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	t    time.Time
}

func String(s string) Value          { return Value{kind: KindString, s: s} }
func Number(n float64) Value         { return Value{kind: KindNumber, n: n} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value         { return Value{kind: KindTime, t: t} }
func (v Value) Kind() Kind           { return v.kind }
func (v Value) Float() float64       { return v.n }
func (v Value) IsTrue() bool         { return v.b }
func (v Value) Timestamp() time.Time { return v.t }

// String returns the text substituted into templates.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return v.s
	}
}

// IsZero reports whether the value renders as empty text.
func (v Value) IsZero() bool {
	return v.kind == KindString && v.s == ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.n)
	case KindBool:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return marshalNoEscape(v.s)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty field value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		// Only exact RFC 3339 round trips are treated as timestamps.
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil && t.Format(time.RFC3339Nano) == s {
			*v = Time(t)
			return nil
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case 'n':
		*v = String("")
	case '{', '[':
		return fmt.Errorf("unsupported field value %s", data)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
	}
	return nil
}

// Field is one named entry of note data.
type Field struct {
	Name  string
	Value Value
}

// Fields is note data: an ordered mapping of field name to value.
type Fields []Field

// Get returns the value stored under name.
func (f Fields) Get(name string) (Value, bool) {
	for _, fld := range f {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value under name, appending the field if it is new.
func (f *Fields) Set(name string, v Value) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = v
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: v})
}

// Merge returns a copy of f with every field of updates applied.
func (f Fields) Merge(updates Fields) Fields {
	out := make(Fields, len(f), len(f)+len(updates))
	copy(out, f)
	for _, u := range updates {
		out.Set(u.Name, u.Value)
	}
	return out
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, fld := range f {
		names[i] = fld.Name
	}
	return names
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fld := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(fld.Name)
		if err != nil {
			return nil, err
		}
		val, err := fld.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("note data must be a JSON object")
	}
	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in note data", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out.Set(name, v)
	}
	*f = out
	return nil
}

// Constraint returns the canonical uniqueness key of data for the given key
// fields: a JSON object of only those fields, sorted by name.
func Constraint(keyFields []string, data Fields) (string, error) {
	keys := append([]string(nil), keyFields...)
	sort.Strings(keys)
	subset := make(Fields, 0, len(keys))
	for _, k := range keys {
		v, ok := data.Get(k)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingField, k)
		}
		subset = append(subset, Field{Name: k, Value: v})
	}
	b, err := subset.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalNoEscape(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Render substitutes every {{field}} placeholder in pattern with the field's text.
func Render(pattern string, data Fields) string {
	text := pattern
	for _, fld := range data {
		text = strings.ReplaceAll(text, "{{"+fld.Name+"}}", fld.Value.String())
	}
	return text
}
