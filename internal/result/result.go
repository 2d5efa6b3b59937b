// Package result carries the outcome of every fallible operation in the
// state layer. A Result is either a success with a value or a failure with
// an AppError, never both.
package result

import (
	"context"
	"errors"
	"fmt"
)

// Result is a success value or an AppError. The zero value is a failure with
// an UNKNOWN error so that an unset Result is never mistaken for success.
type Result[T any] struct {
	value T
	err   *AppError
	ok    bool
}

// Success wraps v in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps err in a failed Result. A nil err becomes UNKNOWN.
func Failure[T any](err *AppError) Result[T] {
	if err == nil {
		err = Unknown("unknown error")
	}
	return Result[T]{err: err}
}

// OK reports whether r is a success.
func (r Result[T]) OK() bool { return r.ok }

// Value returns the success value and true, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// ValueOr returns the success value or def on failure.
func (r Result[T]) ValueOr(def T) T {
	if r.ok {
		return r.value
	}
	return def
}

// Err returns the failure error, or nil on success.
func (r Result[T]) Err() *AppError {
	if r.ok {
		return nil
	}
	if r.err == nil {
		return Unknown("unknown error")
	}
	return r.err
}

// Unwrap converts r into the conventional (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if r.ok {
		return r.value, nil
	}
	return r.value, r.Err()
}

// String renders r for logs.
func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Success(%v)", r.value)
	}
	return fmt.Sprintf("Failure(%v)", r.Err())
}

// Map applies fn to a success value and passes failures through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Failure[U](r.Err())
	}
	return Success(fn(r.value))
}

// Then chains a fallible step onto a success value.
func Then[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.ok {
		return Failure[U](r.Err())
	}
	return fn(r.value)
}

// Combine collects the values of rs, returning the first failure if any.
func Combine[T any](rs ...Result[T]) Result[[]T] {
	values := make([]T, 0, len(rs))
	for _, r := range rs {
		if !r.ok {
			return Failure[[]T](r.Err())
		}
		values = append(values, r.value)
	}
	return Success(values)
}

// Try runs fn and converts a returned error or a panic into a failure.
func Try[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Failure[T](Unknown(fmt.Sprintf("panic: %v", p)))
		}
	}()
	v, err := fn()
	if err != nil {
		return Failure[T](From(err))
	}
	return Success(v)
}

// Guard runs fn, turning a panic into an UNKNOWN failure.
func Guard[T any](fn func() Result[T]) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			res = Failure[T](Unknown(fmt.Sprintf("panic: %v", p)))
		}
	}()
	return fn()
}

// From classifies an arbitrary error. AppErrors pass through unchanged.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout("request timed out")
	case errors.Is(err, context.Canceled):
		return Timeout("request cancelled")
	}
	return Unknown(err.Error())
}
