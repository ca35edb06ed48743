package form

import (
	"maps"
	"slices"
)

// Fields maps a field name to its rules, checked in order.
type Fields map[string][]Rule

// Form holds input values and the errors from the last validation.
// It is not safe for concurrent use.
type Form struct {
	initial map[string]string
	fields  Fields

	Values       map[string]string
	Errors       map[string]string
	GeneralError string
}

// New creates a form with initial values. Every initial key gets an error slot.
func New(initial map[string]string, fields Fields) *Form {
	f := &Form{
		initial: maps.Clone(initial),
		fields:  fields,
		Values:  maps.Clone(initial),
		Errors:  make(map[string]string, len(initial)),
	}
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	f.ClearErrors()
	return f
}

// Set assigns a field value.
func (f *Form) Set(field, value string) {
	f.Values[field] = value
}

// Validate clears previous errors and records the first failing rule of
// every field. Missing values validate as empty strings.
func (f *Form) Validate() bool {
	f.ClearErrors()
	valid := true
	for field, rules := range f.fields {
		value := f.Values[field]
		for _, rule := range rules {
			if !rule.Check(value) {
				f.SetError(field, rule.Message)
				valid = false
				break
			}
		}
	}
	return valid
}

// SetError records a message for one field, e.g. from a server response.
func (f *Form) SetError(field, message string) {
	f.Errors[field] = message
}

// SetGeneralError records a message that belongs to no single field.
func (f *Form) SetGeneralError(message string) {
	f.GeneralError = message
}

// ClearErrors empties every error without dropping the slots.
func (f *Form) ClearErrors() {
	for field := range f.initial {
		f.Errors[field] = ""
	}
	for field := range f.Errors {
		f.Errors[field] = ""
	}
	f.GeneralError = ""
}

// Reset restores the initial values and clears errors.
func (f *Form) Reset() {
	f.Values = maps.Clone(f.initial)
	if f.Values == nil {
		f.Values = make(map[string]string)
	}
	f.ClearErrors()
}

// FirstError returns the general error, or else the error of the first
// failing field by name, or "".
func (f *Form) FirstError() string {
	if f.GeneralError != "" {
		return f.GeneralError
	}
	for _, field := range slices.Sorted(maps.Keys(f.Errors)) {
		if msg := f.Errors[field]; msg != "" {
			return msg
		}
	}
	return ""
}
