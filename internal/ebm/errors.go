package ebm

import "errors"

var (
	// ErrInvalidDimension reports a control or observation vector whose
	// length does not match the latitude resolution.
	ErrInvalidDimension = errors.New("control dimension mismatch")

	// ErrInvalidGrid reports a latitude resolution too small to form the
	// diffusion stencil.
	ErrInvalidGrid = errors.New("grid too small")
)
