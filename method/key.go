package method

import (
	"crypto/sha256"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"
)

// Keyer derives identity keys for methods.
//
// Contract:
// - Determinism: equal verb, target, params, body and headers must produce
// the same key regardless of map iteration order.
// - Totality: Key never fails. Values that cannot be serialized are left out.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(m *Method) string
}

// DefaultKeyer generates SHA-256 based identity keys.
type DefaultKeyer struct{}

var defaultKeyer Keyer = NewDefaultKeyer()

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic identity key.
// Format: <VERB>:<hash>
// where hash is the first 16 characters of
// SHA-256(canonical JSON([verb, fullURL, params, data, headers])).
func (k *DefaultKeyer) Key(m *Method) string {
	parts := []any{
		string(m.Verb),
		m.FullURL(),
		m.Config.Params,
		m.Data,
		m.Config.Headers,
	}
	canonical, _ := canonicalize(parts)

	hash := sha256.Sum256(canonical)
	return string(m.Verb) + ":" + hex.EncodeToString(hash[:8])
}

// canonicalize produces a deterministic JSON representation of v.
// Maps are sorted by key and structs are walked field by field, so an
// unserializable field drops only itself. The boolean is false when v cannot
// be serialized, in which case the caller drops it.
func canonicalize(v any) ([]byte, bool) {
	if v == nil {
		return []byte("null"), true
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val), true
	case []any:
		return canonicalizeSlice(val), true
	case []byte:
		return marshal(val)
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return []byte("null"), true
	}
	if marshalsItself(rv.Type()) {
		return marshal(v)
	}

	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, false
	case reflect.Pointer, reflect.Interface:
		return canonicalize(rv.Elem().Interface())
	case reflect.Struct:
		fields := make(map[string]any, rv.NumField())
		collectFields(rv, fields)
		return canonicalizeMap(fields), true
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return canonicalizeMap(m), true
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []byte("null"), true
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = rv.Index(i).Interface()
		}
		return canonicalizeSlice(s), true
	}

	return marshal(v)
}

var (
	jsonMarshaler = reflect.TypeFor[json.Marshaler]()
	textMarshaler = reflect.TypeFor[encoding.TextMarshaler]()
)

// marshalsItself reports whether t controls its own JSON form, e.g. time.Time.
func marshalsItself(t reflect.Type) bool {
	return t.Implements(jsonMarshaler) || t.Implements(textMarshaler)
}

// collectFields stores the exported fields of struct rv in out under their
// JSON names. Fields tagged "-" and empty omitempty fields are skipped.
// Untagged embedded structs are flattened, and direct fields win over
// promoted ones. Unserializable field values are dropped later by
// canonicalizeMap, so they never hide their siblings.
func collectFields(rv reflect.Value, out map[string]any) {
	rt := rv.Type()
	direct := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" {
			ev := fv
			if ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					continue
				}
				ev = ev.Elem()
			}
			if ev.Kind() == reflect.Struct && !marshalsItself(ev.Type()) && !marshalsItself(fv.Type()) {
				collectFields(ev, out)
				continue
			}
		}

		if name == "" {
			name = f.Name
		}
		if slices.Contains(strings.Split(opts, ","), "omitempty") && isEmptyValue(fv) {
			continue
		}
		direct[name] = fv.Interface()
	}
	maps.Copy(out, direct)
}

// isEmptyValue follows the omitempty rules of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func marshal(v any) ([]byte, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return b, true
}

func canonicalizeMap(m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	first := true
	for _, k := range keys {
		valBytes, ok := canonicalize(m[k])
		if !ok {
			continue
		}
		if !first {
			result = append(result, ',')
		}
		first = false

		keyBytes, _ := json.Marshal(k)
		result = append(result, keyBytes...)
		result = append(result, ':')
		result = append(result, valBytes...)
	}
	return append(result, '}')
}

func canonicalizeSlice(s []any) []byte {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, ok := canonicalize(v)
		if !ok {
			valBytes = []byte("null")
		}
		result = append(result, valBytes...)
	}
	return append(result, ']')
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
