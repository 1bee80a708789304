package utils

import (
	"reflect"
	"strings"
)

// NormalizeDTO trims string fields on a pointer-to-struct DTO, including
// *string fields, []string elements and nested slice-of-struct fields.
// Nil pointers stay nil so GORM won't update them.
func NormalizeDTO(dto any) {
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr {
		return
	}
	normalizeStruct(v.Elem())
}

func normalizeStruct(s reflect.Value) {
	if s.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		case reflect.Slice:
			for j := 0; j < f.Len(); j++ {
				el := f.Index(j)
				switch el.Kind() {
				case reflect.String:
					el.SetString(strings.TrimSpace(el.String()))
				case reflect.Struct:
					normalizeStruct(el)
				}
			}
		case reflect.Struct:
			// Leave non-DTO structs (times, decimals) alone.
		}
	}
}
