package typeset

import "errors"

var (
	// ErrTemplate indicates a required placeholder had no corresponding data
	// or substitution left the source in an unusable state.
	ErrTemplate = errors.New("template error")

	// ErrCompilerSyntax indicates the typesetting compiler rejected the
	// substituted source.
	ErrCompilerSyntax = errors.New("compiler syntax error")

	// ErrCompileTimeout indicates the compiler exceeded its time budget.
	ErrCompileTimeout = errors.New("compilation timeout")

	// ErrToolchainUnavailable indicates the compiler binary could not be run.
	ErrToolchainUnavailable = errors.New("toolchain unavailable")
)
