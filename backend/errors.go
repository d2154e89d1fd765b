package backend

import "errors"

var (
	// ErrUnhandledInstruction is reported when no lowering rule matches an
	// IR instruction.
	ErrUnhandledInstruction = errors.New("unhandled instruction")

	// ErrUnsupportedType is reported when the backend cannot represent a
	// type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedConvention is reported when ABI resolution cannot
	// serve the requested calling convention on the current target.
	ErrUnsupportedConvention = errors.New("unsupported calling convention")

	// ErrTooManyReturns is reported when a return cannot be packed into
	// the convention's return registers and no indirect return slot was
	// declared.
	ErrTooManyReturns = errors.New("too many returns")
)
