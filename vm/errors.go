package vm

import "github.com/pkg/errors"

// Error kinds. Callers recover the kind a wrapped error carries with
// errors.Cause, the same idiom the teacher VM uses for its own error
// taxonomy.
var (
	// ErrModuleLoad covers malformed binary magic, unsupported major
	// version, and malformed directives.
	ErrModuleLoad = errors.New("module load error")
	// ErrFunctionNotFound is returned when an export alias or internal
	// function name does not resolve.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrCallStackOverflow is returned when a call would exceed the
	// configured call-depth limit.
	ErrCallStackOverflow = errors.New("call stack overflow")
	// ErrDivisionByZero is returned by div, rem, fdiv and frem with a zero
	// divisor.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidFunctionPointer is returned by call.indirect on an ID not
	// present in the function-pointer table.
	ErrInvalidFunctionPointer = errors.New("invalid function pointer")
	// ErrDecoder is returned by the binary decoder on an unexpected end of
	// data while reading a field.
	ErrDecoder = errors.New("decoder error")
)

// Kind returns the sentinel error kind behind err, or nil if err does not
// wrap one of the kinds declared in this package.
func Kind(err error) error {
	cause := errors.Cause(err)
	switch cause {
	case ErrModuleLoad, ErrFunctionNotFound, ErrCallStackOverflow,
		ErrDivisionByZero, ErrInvalidFunctionPointer, ErrDecoder:
		return cause
	default:
		return nil
	}
}
