package schema

import (
	"encoding/json"
	"math"
)

// Record is the untyped attribute map of one entity as it appears in a snapshot.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether k is present with a non-null value.
func (r Record) Has(k string) bool {
	v, ok := r[k]
	return ok && v != nil
}

// Resolver looks up the entity type registered under a primary key.
type Resolver interface {
	TypeOf(pk int64) (string, bool)
}

type Kind int

const (
	KindInt Kind = iota + 1
	KindBool
	KindString
	KindList
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindInt, KindRef:
		return "an integer"
	case KindBool:
		return "a boolean"
	case KindString:
		return "a string"
	case KindList:
		return "a list"
	default:
		return "unknown"
	}
}

// FieldCheck runs right after its field passed the built-in checks.
type FieldCheck func(v any, r Record, res Resolver) error

// Field describes one attribute of a component. Fields are values; the
// builder methods return modified copies so tables can be declared inline.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool

	min, max       int64
	hasMin, hasMax bool

	refTypes []string
	check    FieldCheck
	display  func(v any) any
}

func Int(name string) Field    { return Field{Name: name, Kind: KindInt} }
func Bool(name string) Field   { return Field{Name: name, Kind: KindBool} }
func String(name string) Field { return Field{Name: name, Kind: KindString} }
func List(name string) Field   { return Field{Name: name, Kind: KindList} }

// Ref declares a reference to another entity's pk. With no types any
// registered entity is accepted.
func Ref(name string, types ...string) Field {
	return Field{Name: name, Kind: KindRef, refTypes: types}
}

func (f Field) Opt() Field {
	f.Optional = true
	return f
}

func (f Field) Min(n int64) Field {
	f.min, f.hasMin = n, true
	return f
}

func (f Field) Max(n int64) Field {
	f.max, f.hasMax = n, true
	return f
}

func (f Field) Between(lo, hi int64) Field {
	return f.Min(lo).Max(hi)
}

func (f Field) Check(fn FieldCheck) Field {
	f.check = fn
	return f
}

func (f Field) Display(fn func(v any) any) Field {
	f.display = fn
	return f
}

// Validate checks required-ness, then type, bounds and reference existence.
func (f Field) Validate(r Record, res Resolver) error {
	v, ok := r[f.Name]
	if !ok || v == nil {
		if f.Optional {
			return nil
		}
		return Errorf("'%s' is required.", f.Name)
	}

	switch f.Kind {
	case KindBool:
		if _, ok := v.(bool); !ok {
			return Errorf("'%s' must be %s.", f.Name, f.Kind)
		}
	case KindString:
		if _, ok := v.(string); !ok {
			return Errorf("'%s' must be %s.", f.Name, f.Kind)
		}
	case KindList:
		if _, ok := v.([]any); !ok {
			return Errorf("'%s' must be %s.", f.Name, f.Kind)
		}
	case KindInt:
		n, ok := AsInt(v)
		if !ok {
			return Errorf("'%s' must be %s.", f.Name, f.Kind)
		}
		if f.hasMin && n < f.min {
			return Errorf("'%s' must be greater than or equal to %d.", f.Name, f.min)
		}
		if f.hasMax && n > f.max {
			return Errorf("'%s' must be less than or equal to %d.", f.Name, f.max)
		}
	case KindRef:
		pk, ok := AsInt(v)
		if !ok {
			return Errorf("'%s' must be %s.", f.Name, f.Kind)
		}
		typ, found := "", false
		if res != nil {
			typ, found = res.TypeOf(pk)
		}
		if !found {
			return Errorf("'%s' is not an existing entity.", f.Name)
		}
		if len(f.refTypes) > 0 && !contains(f.refTypes, typ) {
			return Errorf("'%s' cannot point to an entity of this type.", f.Name)
		}
	}

	if f.check != nil {
		return f.check(v, r, res)
	}
	return nil
}

// AsInt accepts Go integer kinds, json.Number and integral floats. Booleans
// are never integers.
func AsInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
