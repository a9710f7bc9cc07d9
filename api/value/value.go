// Package value holds the value carried through a transformer chain.
package value

// Value wraps the current value of a transformer chain step.
//
// Transformers never mutate what Get returns; they build a replacement and
// the chain wraps it in a fresh Value for the next step.
type Value struct {
	v any
}

// New wraps v.
func New(v any) *Value {
	return &Value{v: v}
}

// Get returns the wrapped value.
func (t *Value) Get() any {
	if t == nil {
		return nil
	}
	return t.v
}

// Set replaces the wrapped value and returns the receiver.
func (t *Value) Set(v any) *Value {
	t.v = v
	return t
}

// IsEmpty reports whether the wrapped value is "empty" in the loose sense
// used by formatters: nil, false, zero numbers, "", "0" and empty
// collections.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == "" || x == "0"
	case float64:
		return x == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case []byte:
		return len(x) == 0
	default:
		return false
	}
}
