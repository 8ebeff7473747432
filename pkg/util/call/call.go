// Package call sequences validation and setup steps that return errors
package call

// Call is a step that may fail
type Call func() error

// Perform runs each call in turn, returning the first error encountered.
// Calls after a failure are not run
func Perform(calls ...Call) error {
	for _, c := range calls {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// WithArg binds a single argument to fn
func WithArg[A any](fn func(A) error, a A) Call {
	return func() error {
		return fn(a)
	}
}

// WithArgs binds two arguments to fn
func WithArgs[A, B any](fn func(A, B) error, a A, b B) Call {
	return func() error {
		return fn(a, b)
	}
}
