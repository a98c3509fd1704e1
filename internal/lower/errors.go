package lower

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedSymbol marks a call whose canonical target does not exist.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")
	// ErrUnexpectedChain marks a handle use that is not a well-formed decode chain.
	ErrUnexpectedChain = errors.New("unexpected use-chain shape")
	// ErrLinkFailed marks a support library that could not be loaded or merged.
	ErrLinkFailed = errors.New("support library link failed")
	// ErrNameCollision marks two functions that normalize to the same name.
	ErrNameCollision = errors.New("canonical name collision")
)

// Stage names a step of the lowering pipeline.
type Stage string

const (
	StageRename      Stage = "rename"
	StageLink        Stage = "link"
	StageSignature   Stage = "signature"
	StageStrip       Stage = "strip-metadata"
	StageRewrite     Stage = "rewrite-arrays"
	StageCalls       Stage = "normalize-calls"
	StageReplace     Stage = "replace"
	StageDescriptors Stage = "kernel-descriptors"
	StageResolve     Stage = "resolve"
	StageValidate    Stage = "validate"
)

// StageError reports the stage and function that stopped the pipeline.
type StageError struct {
	Stage Stage
	Func  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("lower: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("lower: %s: @%s: %v", e.Stage, e.Func, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// UnresolvedCall records a call the normalizer could not retarget.
type UnresolvedCall struct {
	Caller    string
	Callee    string
	Canonical string
}

// UnresolvedError lists every unresolved call left in a module.
type UnresolvedError struct {
	Calls []UnresolvedCall
}

func (e *UnresolvedError) Error() string {
	names := make([]string, 0, len(e.Calls))
	for _, c := range e.Calls {
		names = append(names, fmt.Sprintf("@%s (from @%s)", c.Canonical, c.Caller))
	}
	return fmt.Sprintf("%v: %s", ErrUnresolvedSymbol, strings.Join(names, ", "))
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedSymbol }
