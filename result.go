package goEventHub

// Result is the uniform outcome of a network action: either a value or an
// *ActionError, never both.
//
// The caller-facing action methods (Login, ValidateToken, ...) are thin
// mappings over the matching <Action>Result method.
type Result[T any] struct {
	value T
	err   *ActionError
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure. A nil err produces a zero-value success.
func Err[T any](err *ActionError) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the action succeeded.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Failure returns the failure, or nil on success.
func (r Result[T]) Failure() *ActionError {
	return r.err
}

// Kind returns KindNone on success and the failure kind otherwise.
func (r Result[T]) Kind() ErrorKind {
	if r.err == nil {
		return KindNone
	}
	return r.err.Kind
}

// Unwrap converts the result into Go's (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// OrElse returns the success value or fallback on failure.
func (r Result[T]) OrElse(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}
