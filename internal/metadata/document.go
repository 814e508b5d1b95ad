// Package metadata turns the raw, arbitrarily shaped documents a Tablo
// returns for a recording into normalized Recording records.
//
// Raw documents are held as a tagged variant (Null, Scalar, Sequence,
// Mapping) so field probes never depend on the runtime shape of a decoded
// JSON value. Absence is always signaled by a caller-supplied default, never
// by an error: the resolver must produce a best-effort Recording for any
// input so every discovered id stays classifiable.
package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

// Value is one node of a raw metadata document.
type Value struct {
	kind    Kind
	scalar  any // string, float64, or bool
	seq     []Value
	mapping map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a scalar string.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Decode parses a JSON document into a Value tree. Errors are left to the
// caller, which typically degrades to an empty document.
func Decode(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Null(), fmt.Errorf("decode metadata document: %w", err)
	}
	return fromAny(raw), nil
}

func fromAny(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case map[string]any:
		m := make(map[string]Value, len(v))
		for key, val := range v {
			m[key] = fromAny(val)
		}
		return Value{kind: KindMapping, mapping: m}
	case []any:
		seq := make([]Value, 0, len(v))
		for _, val := range v {
			seq = append(seq, fromAny(val))
		}
		return Value{kind: KindSequence, seq: seq}
	default:
		return Value{kind: KindScalar, scalar: v}
	}
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Resolve descends the document one mapping key per dotted-path segment. If
// the value at any step is not a mapping, the key is absent, or the resolved
// value is null, the supplied default is returned as-is. The value reached at
// the final segment is returned whatever its shape.
func (v Value) Resolve(path string, def Value) Value {
	current := v
	for _, segment := range strings.Split(path, ".") {
		if current.kind != KindMapping {
			return def
		}
		next, ok := current.mapping[segment]
		if !ok {
			return def
		}
		current = next
	}
	if current.IsNull() {
		return def
	}
	return current
}

// Text renders the value as a string. Sequences yield their first element's
// text (the device wraps single values in lists for several fields);
// mappings and null yield the default.
func (v Value) Text(def string) string {
	switch v.kind {
	case KindScalar:
		return scalarText(v.scalar)
	case KindSequence:
		if len(v.seq) == 0 {
			return def
		}
		return v.seq[0].Text(def)
	default:
		return def
	}
}

// Int renders the value as an integer, accepting numeric scalars and numeric
// strings. Anything else yields the default.
func (v Value) Int(def int) int {
	switch v.kind {
	case KindScalar:
		switch s := v.scalar.(type) {
		case float64:
			return int(s)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return n
			}
		}
		return def
	case KindSequence:
		if len(v.seq) == 0 {
			return def
		}
		return v.seq[0].Int(def)
	default:
		return def
	}
}

func scalarText(scalar any) string {
	switch s := scalar.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}

// Sequence returns the sequence elements; other shapes yield nil.
func (v Value) Sequence() []Value {
	if v.kind != KindSequence {
		return nil
	}
	return v.seq
}

// Has reports whether the mapping contains the given top-level key.
func (v Value) Has(key string) bool {
	if v.kind != KindMapping {
		return false
	}
	_, ok := v.mapping[key]
	return ok
}

// Flatten renders every scalar leaf of the document into a dotted-path keyed
// map. Sequence elements are keyed by index. The result feeds custom naming
// templates and the long listing view.
func (v Value) Flatten() map[string]string {
	out := make(map[string]string)
	v.flattenInto(out, "")
	return out
}

func (v Value) flattenInto(out map[string]string, prefix string) {
	switch v.kind {
	case KindScalar:
		out[prefix] = scalarText(v.scalar)
	case KindSequence:
		for i, item := range v.seq {
			item.flattenInto(out, joinPath(prefix, strconv.Itoa(i)))
		}
	case KindMapping:
		keys := make([]string, 0, len(v.mapping))
		for key := range v.mapping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			v.mapping[key].flattenInto(out, joinPath(prefix, key))
		}
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}
