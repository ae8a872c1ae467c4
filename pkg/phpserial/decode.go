package phpserial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const maxDepth = 512

var (
	ErrSyntax   = errors.New("phpserial: syntax error")
	ErrTooDeep  = errors.New("phpserial: nesting too deep")
	ErrTrailing = errors.New("phpserial: trailing data")
)

// Unmarshal decodes data produced by PHP's serialize(). References (r:/R:)
// decode as Null.
func Unmarshal(data []byte) (Value, error) {
	d := &decoder{data: data}

	v, err := d.value()
	if err != nil {
		return Value{}, err
	}

	if len(bytes.TrimSpace(d.data[d.pos:])) > 0 {
		return Value{}, fmt.Errorf("%w at offset %d", ErrTrailing, d.pos)
	}
	return v, nil
}

// IsSerialized reports whether s looks like serialize() output. It follows
// the checks WordPress itself applies before calling unserialize().
func IsSerialized(s string) bool {
	s = strings.TrimSpace(s)
	if s == "N;" {
		return true
	}
	if len(s) < 4 || s[1] != ':' {
		return false
	}

	last := s[len(s)-1]
	if last != ';' && last != '}' {
		return false
	}

	switch s[0] {
	case 's', 'S':
		return last == ';' && strings.Contains(s, `"`)
	case 'a', 'O', 'C':
		return last == '}'
	case 'b', 'i', 'd', 'E':
		return last == ';'
	}
	return false
}

// FromJSON decodes a JSON document into the same variant. Object keys are
// kept in sorted order.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("phpserial: invalid json: %w", err)
	}
	return fromAny(raw), nil
}

// Decode tries PHP serialization first and JSON second. It reports false when
// s is neither.
func Decode(s string) (Value, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value{}, false
	}

	if IsSerialized(trimmed) {
		if v, err := Unmarshal([]byte(trimmed)); err == nil {
			return v, true
		}
		return Value{}, false
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		if v, err := FromJSON([]byte(trimmed)); err == nil {
			return v, true
		}
	}
	return Value{}, false
}

func fromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		f, _ := x.Float64()
		return Float(f)
	case string:
		return String(x)
	case []any:
		values := make([]Value, len(x))
		for i, item := range x {
			values[i] = fromAny(item)
		}
		return List(values...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		entries := make([]Entry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, Entry{Key: String(k), Value: fromAny(x[k])})
		}
		return Array(entries...)
	}
	return Null()
}

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, d.pos, fmt.Sprintf(format, args...))
}

func (d *decoder) expect(b byte) error {
	if d.pos >= len(d.data) {
		return d.errorf("expected %q, got end of input", b)
	}
	if d.data[d.pos] != b {
		return d.errorf("expected %q, got %q", b, d.data[d.pos])
	}
	d.pos++
	return nil
}

// until returns the bytes up to delim and moves past it.
func (d *decoder) until(delim byte) (string, error) {
	i := bytes.IndexByte(d.data[d.pos:], delim)
	if i < 0 {
		return "", d.errorf("missing %q", delim)
	}
	s := string(d.data[d.pos : d.pos+i])
	d.pos += i + 1
	return s, nil
}

func (d *decoder) integer(delim byte) (int64, error) {
	s, err := d.until(delim)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, d.errorf("invalid integer %q", s)
	}
	return i, nil
}

func (d *decoder) length() (int, error) {
	n, err := d.integer(':')
	if err != nil {
		return 0, err
	}
	if n < 0 || n > int64(len(d.data)) {
		return 0, d.errorf("invalid length %d", n)
	}
	return int(n), nil
}

// quoted reads `"<n bytes>"`.
func (d *decoder) quoted(n int) (string, error) {
	if err := d.expect('"'); err != nil {
		return "", err
	}
	if d.pos+n > len(d.data) {
		return "", d.errorf("string of %d bytes exceeds input", n)
	}
	s := string(d.data[d.pos : d.pos+n])
	d.pos += n
	if err := d.expect('"'); err != nil {
		return "", err
	}
	return s, nil
}

func (d *decoder) value() (Value, error) {
	if d.pos >= len(d.data) {
		return Value{}, d.errorf("unexpected end of input")
	}

	tag := d.data[d.pos]
	d.pos++

	if tag == 'N' {
		if err := d.expect(';'); err != nil {
			return Value{}, err
		}
		return Null(), nil
	}

	if err := d.expect(':'); err != nil {
		return Value{}, err
	}

	switch tag {
	case 'b':
		s, err := d.until(';')
		if err != nil {
			return Value{}, err
		}
		switch s {
		case "0":
			return Bool(false), nil
		case "1":
			return Bool(true), nil
		}
		return Value{}, d.errorf("invalid boolean %q", s)

	case 'i':
		i, err := d.integer(';')
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil

	case 'd':
		s, err := d.until(';')
		if err != nil {
			return Value{}, err
		}
		switch s {
		case "INF":
			return Float(math.Inf(1)), nil
		case "-INF":
			return Float(math.Inf(-1)), nil
		case "NAN":
			return Float(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, d.errorf("invalid float %q", s)
		}
		return Float(f), nil

	case 's':
		n, err := d.length()
		if err != nil {
			return Value{}, err
		}
		s, err := d.quoted(n)
		if err != nil {
			return Value{}, err
		}
		if err := d.expect(';'); err != nil {
			return Value{}, err
		}
		return String(s), nil

	case 'E':
		n, err := d.length()
		if err != nil {
			return Value{}, err
		}
		s, err := d.quoted(n)
		if err != nil {
			return Value{}, err
		}
		if err := d.expect(';'); err != nil {
			return Value{}, err
		}
		return String(s), nil

	case 'r', 'R':
		if _, err := d.integer(';'); err != nil {
			return Value{}, err
		}
		return Null(), nil

	case 'a':
		entries, err := d.entries(false)
		if err != nil {
			return Value{}, err
		}
		return Array(entries...), nil

	case 'O':
		n, err := d.length()
		if err != nil {
			return Value{}, err
		}
		class, err := d.quoted(n)
		if err != nil {
			return Value{}, err
		}
		if err := d.expect(':'); err != nil {
			return Value{}, err
		}
		entries, err := d.entries(true)
		if err != nil {
			return Value{}, err
		}
		return Object(class, entries...), nil

	case 'C':
		n, err := d.length()
		if err != nil {
			return Value{}, err
		}
		class, err := d.quoted(n)
		if err != nil {
			return Value{}, err
		}
		if err := d.expect(':'); err != nil {
			return Value{}, err
		}
		size, err := d.length()
		if err != nil {
			return Value{}, err
		}
		if err := d.expect('{'); err != nil {
			return Value{}, err
		}
		if d.pos+size > len(d.data) {
			return Value{}, d.errorf("custom payload of %d bytes exceeds input", size)
		}
		payload := string(d.data[d.pos : d.pos+size])
		d.pos += size
		if err := d.expect('}'); err != nil {
			return Value{}, err
		}
		return Object(class, E(String("data"), String(payload))), nil
	}

	return Value{}, fmt.Errorf("%w at offset %d: unknown type %q", ErrSyntax, d.pos-2, tag)
}

// entries reads `n:{key value ...}` after the type tag and colon. Object
// property names lose their visibility prefix.
func (d *decoder) entries(object bool) ([]Entry, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > maxDepth {
		return nil, ErrTooDeep
	}

	n, err := d.length()
	if err != nil {
		return nil, err
	}
	if err := d.expect('{'); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		key, err := d.value()
		if err != nil {
			return nil, err
		}
		if key.Kind != KindInt && key.Kind != KindString {
			return nil, d.errorf("invalid key of kind %s", key.Kind)
		}
		if object && key.Kind == KindString {
			key.Str = propertyName(key.Str)
		}

		val, err := d.value()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: val})
	}

	if err := d.expect('}'); err != nil {
		return nil, err
	}
	return entries, nil
}

// propertyName strips "\x00*\x00" (protected) and "\x00Class\x00" (private).
func propertyName(name string) string {
	if len(name) > 0 && name[0] == 0 {
		if i := strings.IndexByte(name[1:], 0); i >= 0 {
			return name[i+2:]
		}
	}
	return name
}
