package models

import "fmt"

// Properties is an open mapping of property key to scalar value. The type
// system is deliberately open (extraction produces arbitrary keys), but
// values are restricted to scalars so they round-trip cleanly through the
// graph store. Normalize before writing.
type Properties map[string]any

// Clone returns a shallow copy; values are scalars so no deep copy is needed.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge overlays the given keys onto p, preserving keys not present in
// other. Returns the merged map; p itself is not mutated.
func (p Properties) Merge(other Properties) Properties {
	out := p.Clone()
	if out == nil {
		out = make(Properties, len(other))
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Normalize validates every value is a supported scalar and widens numeric
// types to int64/float64 in place. An error names the offending key so
// callers can report which field of which record was rejected.
func (p Properties) Normalize() error {
	for k, v := range p {
		nv, err := normalizeScalar(v)
		if err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		p[k] = nv
	}
	return nil
}

func normalizeScalar(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T (scalars only)", v)
	}
}
