/*
MIT License

Copyright (c) 2025 Advanced Micro Devices, Inc.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package coreerr defines the typed error taxonomy shared by every core
// subsystem (catalog, resolver, cache, supervisor, probe, reconciler). Every
// exported constructor returns a *CoreError carrying a Kind so that
// cmd/aimdeploy and the reconciler can
// both translate an error into an exit code or a condition without either
// one re-deriving the classification logic.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is the semantic classification from the error taxonomy. It never
// changes meaning across callers: the same Kind always maps to the same
// exit code in cmd/aimdeploy and the same condition reason in the reconciler.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedCatalog
	KindNotFound
	KindNoAccelerator
	KindNoRecipe
	KindFetchFailed
	KindIOError
	KindLaunchError
	KindReadinessTimeout
	KindInstanceDied
	KindStatusConflict
	KindAlreadyExists
)

func (k Kind) String() string {
	switch k {
	case KindMalformedCatalog:
		return "MalformedCatalog"
	case KindNotFound:
		return "NotFound"
	case KindNoAccelerator:
		return "NoAccelerator"
	case KindNoRecipe:
		return "NoRecipe"
	case KindFetchFailed:
		return "FetchFailed"
	case KindIOError:
		return "IOError"
	case KindLaunchError:
		return "LaunchError"
	case KindReadinessTimeout:
		return "ReadinessTimeout"
	case KindInstanceDied:
		return "InstanceDied"
	case KindStatusConflict:
		return "StatusConflict"
	case KindAlreadyExists:
		return "AlreadyExists"
	default:
		return "Unknown"
	}
}

// CoreError is the concrete error type every subsystem returns for a
// classified failure. Message carries human-readable detail; Kind is what
// callers branch on, never the message text.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is compares by Kind, so errors.Is(err, &CoreError{Kind: KindNoRecipe})
// matches any CoreError of that Kind anywhere in err's chain. The package
// defines no sentinel error variables.
func (e *CoreError) Is(target error) bool {
	var ce *CoreError
	if errors.As(target, &ce) {
		return ce.Kind == e.Kind
	}
	return false
}

func newErr(k Kind, format string, args ...any) error {
	return &CoreError{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(k Kind, cause error, format string, args ...any) error {
	return &CoreError{Kind: k, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewMalformedCatalog reports a catalog that violates an invariant (e.g. the
// tensor-parallel invariant) at load time. Fatal: the caller must not start.
func NewMalformedCatalog(format string, args ...any) error {
	return newErr(KindMalformedCatalog, format, args...)
}

// NewNotFound reports an unknown model_id passed to the catalog.
func NewNotFound(format string, args ...any) error {
	return newErr(KindNotFound, format, args...)
}

// NewNoAccelerator reports that the GPU Probe's runtime_visible count is zero.
func NewNoAccelerator(format string, args ...any) error {
	return newErr(KindNoAccelerator, format, args...)
}

// NewNoRecipe reports that the resolver exhausted every fallback without a match.
func NewNoRecipe(format string, args ...any) error {
	return newErr(KindNoRecipe, format, args...)
}

// NewFetchFailed wraps a fetch_fn failure from the Cache Store.
func NewFetchFailed(cause error, format string, args ...any) error {
	return wrapErr(KindFetchFailed, cause, format, args...)
}

// NewIOError wraps a disk I/O failure from the Cache Store or Supervisor.
func NewIOError(cause error, format string, args ...any) error {
	return wrapErr(KindIOError, cause, format, args...)
}

// NewLaunchError wraps a synchronous pre-start failure from the Supervisor.
func NewLaunchError(cause error, format string, args ...any) error {
	return wrapErr(KindLaunchError, cause, format, args...)
}

// NewReadinessTimeout reports that wait_ready exceeded its deadline.
func NewReadinessTimeout(format string, args ...any) error {
	return newErr(KindReadinessTimeout, format, args...)
}

// NewInstanceDied reports that the Supervisor observed the child exit before readiness.
func NewInstanceDied(format string, args ...any) error {
	return newErr(KindInstanceDied, format, args...)
}

// NewStatusConflict reports an optimistic-concurrency write rejection.
func NewStatusConflict(cause error, format string, args ...any) error {
	return wrapErr(KindStatusConflict, cause, format, args...)
}

// NewAlreadyExists reports a launch() call for an identity that already has
// a non-terminal instance.
func NewAlreadyExists(format string, args ...any) error {
	return newErr(KindAlreadyExists, format, args...)
}

// Classify extracts the Kind from err, walking the error chain. It returns
// KindUnknown for nil or for errors that never went through a constructor
// above. The Reconciler and cmd/aimdeploy both call this as the sole
// translator from typed errors into conditions/exit codes.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Retryable reports whether the reconciler should requeue with backoff
// rather than treat the error as fatal. MalformedCatalog (caught at startup,
// outside the reconcile loop) and Unknown (an unclassified error) report
// false; every other Kind is reconcilable.
func Retryable(k Kind) bool {
	return k != KindMalformedCatalog && k != KindUnknown
}
