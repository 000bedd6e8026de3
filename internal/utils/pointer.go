package utils

// Ptr returns a pointer to v. Partial state updates use it to mark a field
// as set.
//
// Example:
//
//	update := research.Update{Confidence: utils.Ptr(0.8)}
func Ptr[T any](v T) *T {
	return &v
}
