package assemble

import (
	"errors"
	"fmt"
)

var (
	ErrNoInputs  = errors.New("assemble: no inputs")
	ErrAllFailed = errors.New("assemble: every input failed")
	ErrNoPages   = errors.New("assemble: no pages left to write")
	ErrFailed    = errors.New("assemble: input failed")
)

// AssemblyError aborts a merge. Err joins the kind with every input
// failure, so both errors.Is(err, ErrAllFailed) and errors.Is(err, cause)
// hold.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// InputError names the input a failure belongs to.
type InputError struct {
	Input string
	Err   error
}

func (e *InputError) Error() string { return fmt.Sprintf("%s: %v", e.Input, e.Err) }

func (e *InputError) Unwrap() error { return e.Err }
