// Package ptr has utilities for working with pointers.
package ptr

// To returns a pointer to the given value.
func To[T any](v T) *T {
	return &v
}
