package generator

import "errors"

var (
	// ErrUnresolvedVariable reports a variable reference, assignment target or
	// declaration with no symbol in the active scope.
	ErrUnresolvedVariable = errors.New("unresolved variable")
	// ErrMissingTypeAnnotation reports an expression that a type-directed rule
	// needs but the analyzer left unannotated.
	ErrMissingTypeAnnotation = errors.New("missing type annotation")
	// ErrFrameMismatch reports declarations whose order disagrees with the
	// symbol indices the frame offsets are computed from.
	ErrFrameMismatch = errors.New("frame layout mismatch")
	// ErrLiteralOutOfRange reports an integer literal that does not fit in a
	// 32-bit register.
	ErrLiteralOutOfRange = errors.New("integer literal out of range")
	// ErrGeneratorReused is returned by a second Generate call on one Generator.
	ErrGeneratorReused = errors.New("generator already used")
)
