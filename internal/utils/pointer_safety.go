// Package utils holds helpers for the optional fields of wire payloads.
package utils

// Value dereferences v, giving the zero value for an absent field.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr marks v as present in a payload with optional fields.
func Ptr[T any](v T) *T {
	return &v
}
