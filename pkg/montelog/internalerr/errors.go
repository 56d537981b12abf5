package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrUnsupportedDistribution = errors.New("unsupported distribution")
	ErrModelingConflict        = errors.New("modeling conflict")
	ErrInvalidProgram          = errors.New("invalid program")
	ErrDepthLimit              = errors.New("derivation depth limit exceeded")
	ErrInvalidConfig           = errors.New("invalid configuration")
	ErrNoSolutions             = errors.New("no solutions")
)
