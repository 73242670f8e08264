package httputil

import (
	"reflect"
	"strings"
)

// sanitizeTag controls per-field normalization on request structs:
//
//	`sanitize:"lower"` trims and lowercases (enum codes such as "Salaried")
//	`sanitize:"-"`     leaves the field untouched (free text where spacing matters)
//
// Untagged string, *string and []string fields are trimmed.
const sanitizeTag = "sanitize"

// sanitize normalizes the exported string fields of the struct v points to.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		mode := typ.Field(i).Tag.Get(sanitizeTag)
		if mode == "-" {
			continue
		}
		normalize := strings.TrimSpace
		if mode == "lower" {
			normalize = func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(normalize(field.String()))
		case reflect.Pointer:
			if !field.IsNil() && field.Elem().Kind() == reflect.String {
				field.Elem().SetString(normalize(field.Elem().String()))
			}
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := range field.Len() {
					elem := field.Index(j)
					elem.SetString(normalize(elem.String()))
				}
			}
		}
	}
}
