package engine

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/okanra/serigraph/schema"
)

// absent marks a value that was not found (or was never set) before default
// substitution. It never leaves the engine: absent values surface as nil.
type absent struct{}

var absentValue any = absent{}

func isAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

func isNotLoaded(v any) bool {
	_, ok := v.(schema.NotLoadedValue)
	return ok
}

// isNilValue reports nil interfaces and typed nils.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// lookupKey reads key from a record-like input: map[string]any (or any map
// with string keys) or a struct, through pointers. The second return reports
// whether the key exists; a missing key is absence, not an error.
func lookupKey(input any, key string) (any, bool) {
	if isNilValue(input) {
		return nil, false
	}
	if m, ok := input.(map[string]any); ok {
		v, found := m[key]
		return v, found
	}

	rv := reflect.ValueOf(input)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		return lookupStructField(rv, key)
	default:
		return nil, false
	}
}

func lookupStructField(rv reflect.Value, key string) (any, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if fieldKeyOf(sf) == key {
			return rv.Field(i).Interface(), true
		}
	}
	// Fall back to a case-insensitive match on the Go field name, so inputs
	// declared without tags still resolve snake_case schema keys.
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if strings.EqualFold(sf.Name, strings.ReplaceAll(key, "_", "")) {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// fieldKeyOf derives the source key of a struct field: the json tag name when
// present, otherwise the snake_case form of the field name.
func fieldKeyOf(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnake(sf.Name)
}

func toSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev rune
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(prev) || (i+1 < len(s) && unicode.IsLower(rune(s[i+1])))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}

// asSlice normalizes a sequence value to []any via reflection.
func asSlice(v any) ([]any, bool) {
	if direct, ok := v.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
