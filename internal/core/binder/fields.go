package binder

import (
	"reflect"
	"strings"
	"sync"
)

// fieldInfo describes one integer-compatible candidate field of a record type.
type fieldInfo struct {
	goName  string
	dbTag   string
	jsonTag string
	index   []int // path through embedded structs
	kind    reflect.Kind
	pointer bool
	primary bool
}

// typeCache holds resolved fields per record type (thread-safe).
var typeCache sync.Map // map[reflect.Type][]fieldInfo

// fieldsOf returns all exported fields of t, flattening embedded structs.
func fieldsOf(t reflect.Type) []fieldInfo {
	if cached, ok := typeCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	var out []fieldInfo
	collectFields(t, nil, &out)
	typeCache.Store(t, out)
	return out
}

func collectFields(t reflect.Type, prefix []int, out *[]fieldInfo) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		// Embedded value structs are flattened; embedded pointers are skipped
		// because assigning through them could hit a nil.
		if field.Anonymous {
			if field.Type.Kind() == reflect.Struct {
				collectFields(field.Type, index, out)
			}
			continue
		}
		if field.PkgPath != "" { // unexported
			continue
		}

		ft := field.Type
		pointer := false
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
			pointer = true
		}

		fi := fieldInfo{
			goName:  field.Name,
			dbTag:   tagName(field, "db"),
			jsonTag: tagName(field, "json"),
			index:   index,
			kind:    ft.Kind(),
			pointer: pointer,
		}
		fi.primary = fi.goName == "ID" || fi.dbTag == "id" || fi.jsonTag == "_id"
		*out = append(*out, fi)
	}
}

func tagName(field reflect.StructField, key string) string {
	tag, ok := field.Tag.Lookup(key)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

func (f fieldInfo) isInteger() bool {
	switch f.kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
