// Package binder links a record type's integer field to a named counter.
//
// A Binding is validated once at registration time and is immutable afterwards.
package binder

import (
	"fmt"
	"reflect"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
)

// Options are the registration options recognised for a record type.
// Zero values select the defaults.
type Options struct {
	// Model names the counter. Alias of CounterName.
	Model string `yaml:"model" json:"model,omitempty"`
	// CounterName names the counter (default: record type name).
	CounterName string `yaml:"counterName" json:"counterName,omitempty"`
	// Field receives the value (default: the primary identifier).
	// An exact Go field name wins, then a `db` tag, then a `json` tag.
	Field string `yaml:"field" json:"field,omitempty"`
	// StartAt is the first value issued (default 0).
	StartAt int64 `yaml:"startAt" json:"startAt,omitempty"`
	// IncrementBy is the step (default 1, may be negative).
	IncrementBy int64 `yaml:"incrementBy" json:"incrementBy,omitempty"`
	// IncrementOnUpdate advances the counter on every save of an existing record.
	IncrementOnUpdate bool `yaml:"incrementOnUpdate" json:"incrementOnUpdate,omitempty"`
}

// Binding is the immutable descriptor consumed by the assignment hook.
type Binding struct {
	recordType        reflect.Type
	counterName       string
	field             fieldInfo
	startAt           int64
	step              int64
	incrementOnUpdate bool
}

// New validates opts against the type of record (a struct or pointer to one)
// and returns the binding. All failures are INVALID_BINDER_CONFIG.
func New(record any, opts Options) (*Binding, error) {
	t := reflect.TypeOf(record)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, apperror.NewInvalidBinderConfig(fmt.Sprintf("%T", record), "record type must be a struct")
	}
	typeName := t.Name()

	name, err := counterName(typeName, opts)
	if err != nil {
		return nil, err
	}

	field, err := resolveField(t, opts.Field)
	if err != nil {
		return nil, err
	}

	if field.primary && opts.IncrementOnUpdate {
		return nil, apperror.NewInvalidBinderConfig(typeName,
			"incrementOnUpdate cannot be used on the primary identifier").
			WithDetail("field", field.goName)
	}

	step := opts.IncrementBy
	if step == 0 {
		step = 1
	}

	return &Binding{
		recordType:        t,
		counterName:       name,
		field:             field,
		startAt:           opts.StartAt,
		step:              step,
		incrementOnUpdate: opts.IncrementOnUpdate,
	}, nil
}

func counterName(typeName string, opts Options) (string, error) {
	switch {
	case opts.CounterName != "" && opts.Model != "" && opts.CounterName != opts.Model:
		return "", apperror.NewInvalidBinderConfig(typeName, "model and counterName disagree").
			WithDetail("model", opts.Model).
			WithDetail("counter_name", opts.CounterName)
	case opts.CounterName != "":
		return opts.CounterName, nil
	case opts.Model != "":
		return opts.Model, nil
	case typeName != "":
		return typeName, nil
	default:
		return "", apperror.NewInvalidBinderConfig("<anonymous>", "counter name is required for anonymous record types")
	}
}

// lookupField picks the primary field for an empty name. Otherwise an exact Go
// field name wins over a db tag, and a db tag over a json tag.
func lookupField(fields []fieldInfo, name string) (fieldInfo, bool) {
	if name == "" {
		for _, f := range fields {
			if f.primary {
				return f, true
			}
		}
		return fieldInfo{}, false
	}
	for _, key := range []func(fieldInfo) string{
		func(f fieldInfo) string { return f.goName },
		func(f fieldInfo) string { return f.dbTag },
		func(f fieldInfo) string { return f.jsonTag },
	} {
		for _, f := range fields {
			if key(f) == name {
				return f, true
			}
		}
	}
	return fieldInfo{}, false
}

func resolveField(t reflect.Type, name string) (fieldInfo, error) {
	fields := fieldsOf(t)

	found, ok := lookupField(fields, name)
	if !ok {
		if name == "" {
			return fieldInfo{}, apperror.NewInvalidBinderConfig(t.Name(), "record type has no primary identifier field")
		}
		return fieldInfo{}, apperror.NewInvalidBinderConfig(t.Name(), "field is not declared on record type").
			WithDetail("field", name)
	}
	if !found.isInteger() {
		return fieldInfo{}, apperror.NewInvalidBinderConfig(t.Name(), "field must be a signed integer").
			WithDetail("field", found.goName).
			WithDetail("kind", found.kind.String())
	}
	return found, nil
}

// CounterName returns the counter this binding draws from.
func (b *Binding) CounterName() string { return b.counterName }

// Field returns the Go name of the bound field.
func (b *Binding) Field() string { return b.field.goName }

// StartAt returns the first value of a fresh counter.
func (b *Binding) StartAt() int64 { return b.startAt }

// Step returns the increment.
func (b *Binding) Step() int64 { return b.step }

// IncrementOnUpdate reports whether saves of existing records advance the counter.
func (b *Binding) IncrementOnUpdate() bool { return b.incrementOnUpdate }

// IsPrimaryKey reports whether the bound field is the record's identifier.
func (b *Binding) IsPrimaryKey() bool { return b.field.primary }

// RecordType returns the bound struct type.
func (b *Binding) RecordType() reflect.Type { return b.recordType }

// Spec returns the counter spec for the registry.
func (b *Binding) Spec() counter.Spec {
	return counter.Spec{Name: b.counterName, StartAt: b.startAt, Step: b.step}
}

// Read returns the bound field's value and whether it is set.
// Pointer fields are unset when nil; plain integers are unset when zero.
func (b *Binding) Read(record any) (int64, bool, error) {
	v, err := b.structValue(record, false)
	if err != nil {
		return 0, false, err
	}
	f := v.FieldByIndex(b.field.index)
	if b.field.pointer {
		if f.IsNil() {
			return 0, false, nil
		}
		return f.Elem().Int(), true, nil
	}
	n := f.Int()
	return n, n != 0, nil
}

// Assign writes value into the bound field. record must be a non-nil pointer.
func (b *Binding) Assign(record any, value int64) error {
	v, err := b.structValue(record, true)
	if err != nil {
		return err
	}
	f := v.FieldByIndex(b.field.index)
	if b.field.pointer {
		elem := reflect.New(f.Type().Elem())
		if elem.Elem().OverflowInt(value) {
			return b.overflow(value)
		}
		elem.Elem().SetInt(value)
		f.Set(elem)
		return nil
	}
	if f.OverflowInt(value) {
		return b.overflow(value)
	}
	f.SetInt(value)
	return nil
}

func (b *Binding) overflow(value int64) error {
	return apperror.NewValidation("counter value overflows bound field").
		WithDetail("field", b.field.goName).
		WithDetail("value", value).
		WithDetail("counter", b.counterName)
}

func (b *Binding) structValue(record any, settable bool) (reflect.Value, error) {
	v := reflect.ValueOf(record)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, apperror.NewValidation("record is nil")
		}
		v = v.Elem()
	} else if settable {
		return reflect.Value{}, apperror.NewValidation("record must be passed by pointer").
			WithDetail("record_type", b.recordType.Name())
	}
	if v.Type() != b.recordType {
		return reflect.Value{}, apperror.NewValidation("record type does not match binding").
			WithDetail("expected", b.recordType.String()).
			WithDetail("got", v.Type().String())
	}
	return v, nil
}
