// Package errdefs defines the error taxonomy for codemap generation.
//
// It wraps github.com/cockroachdb/errors so callers get stack traces and
// wrapping for free, and exposes one sentinel per failure class. Stage code
// wraps a sentinel with context; transport and CLI layers classify with
// errors.Is and never inspect message strings.
package errdefs

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf
	Is    = crdb.Is
	As    = crdb.As
)

// Sentinels for the generation pipeline. Recoverable conditions (per-file
// parse failures, relationship-inference failures) deliberately have no
// sentinel: they are logged and counted at the stage that absorbs them.
var (
	// ErrValidation marks a malformed or out-of-range request, rejected
	// before any stage runs.
	ErrValidation = crdb.New("invalid request")

	// ErrRepoUnavailable means the repository reference could not be
	// resolved to a source tree.
	ErrRepoUnavailable = crdb.New("repository unavailable")

	// ErrIntentParse means the intent classifier returned output that does
	// not satisfy the intent schema. Fatal: a wrong intent corrupts every
	// downstream ranking decision.
	ErrIntentParse = crdb.New("query intent unparsable")

	// ErrLayout means the layout engine could not assign coordinates.
	ErrLayout = crdb.New("layout failed")

	// ErrRender means a required render output could not be produced.
	ErrRender = crdb.New("render failed")

	// ErrStorage marks a persistence failure.
	ErrStorage = crdb.New("storage failure")

	// ErrNotFound covers unknown ids, unknown share tokens, and expired
	// share tokens alike, so token validity timing never leaks.
	ErrNotFound = crdb.New("not found")
)

// IsFatal reports whether err aborts a generation request. Everything except
// nil is fatal at the orchestrator boundary; recoverable errors are absorbed
// inside their stage and never reach it.
func IsFatal(err error) bool {
	return err != nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return crdb.Is(err, ErrNotFound)
}
