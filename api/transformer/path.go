package transformer

import (
	"strconv"
)

// GetPath walks maps and slices along parents. Slice elements are addressed
// by their decimal index.
func GetPath(v any, parents []string) (any, bool) {
	current := v
	for _, key := range parents {
		switch c := current.(type) {
		case map[string]any:
			next, ok := c[key]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			current = c[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath returns a copy of v with the value at parents replaced by nv.
// Only the containers along the path are copied; v itself is not modified.
// Missing map keys are created; an unreachable path returns v unchanged.
func SetPath(v any, parents []string, nv any) any {
	if len(parents) == 0 {
		return nv
	}

	key := parents[0]
	switch c := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(c)+1)
		for k, val := range c {
			cp[k] = val
		}
		child, ok := c[key]
		if !ok && len(parents) > 1 {
			child = map[string]any{}
		}
		cp[key] = SetPath(child, parents[1:], nv)
		return cp
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(c) {
			return v
		}
		cp := make([]any, len(c))
		copy(cp, c)
		cp[i] = SetPath(c[i], parents[1:], nv)
		return cp
	default:
		return v
	}
}
