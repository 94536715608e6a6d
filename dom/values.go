package dom

// Lookup follows a key path through runtime-internal values. Objects are
// map[string]any and function objects are *Func; anything else ends the walk.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		var next any
		var ok bool
		switch o := cur.(type) {
		case map[string]any:
			next, ok = o[key]
		case *Func:
			next, ok = o.Get(key)
		default:
			return nil, false
		}
		if !ok || next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// LookupString is Lookup narrowed to non-empty strings.
func LookupString(v any, path ...string) string {
	got, ok := Lookup(v, path...)
	if !ok {
		return ""
	}
	s, _ := got.(string)
	return s
}

// LookupInt is Lookup narrowed to numbers. JSON-decoded values arrive as
// float64; in-process fixtures may use int.
func LookupInt(v any, path ...string) (int, bool) {
	got, ok := Lookup(v, path...)
	if !ok {
		return 0, false
	}
	switch n := got.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// IsObject reports whether v is a non-nil object or function value.
func IsObject(v any) bool {
	switch o := v.(type) {
	case map[string]any:
		return o != nil
	case *Func:
		return o != nil
	}
	return false
}
