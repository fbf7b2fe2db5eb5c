// MIT License
//
// Copyright (c) 2025 Advanced Micro Devices, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package controllerutils

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCategoryString(t *testing.T) {
	tests := []struct {
		name     string
		category ErrorCategory
		want     string
	}{
		{
			name:     "Infrastructure",
			category: ErrorCategoryInfrastructure,
			want:     "Infrastructure",
		},
		{
			name:     "Auth",
			category: ErrorCategoryAuth,
			want:     "Auth",
		},
		{
			name:     "MissingDependency",
			category: ErrorCategoryMissingDownstreamDependency,
			want:     "MissingDependency",
		},
		{
			name:     "InvalidSpec",
			category: ErrorCategoryInvalidSpec,
			want:     "InvalidSpec",
		},
		{
			name:     "Unknown",
			category: ErrorCategoryUnknown,
			want:     "Unknown",
		},
		{
			name:     "Invalid value defaults to Unknown",
			category: ErrorCategory(999),
			want:     "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.category.String(); got != tt.want {
				t.Errorf("ErrorCategory.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewInfrastructureError(t *testing.T) {
	cause := errors.New("network timeout")
	err := NewInfrastructureError("NetworkFailure", "Failed to connect to runtime process", cause)

	var stateErr StateEngineError
	if !errors.As(err, &stateErr) {
		t.Fatal("NewInfrastructureError should return a StateEngineError")
	}

	if stateErr.Category() != ErrorCategoryInfrastructure {
		t.Errorf("Category() = %v, want %v", stateErr.Category(), ErrorCategoryInfrastructure)
	}

	if stateErr.Reason() != "NetworkFailure" {
		t.Errorf("Reason() = %v, want NetworkFailure", stateErr.Reason())
	}

	if stateErr.UserMessage() != "Failed to connect to runtime process" {
		t.Errorf("UserMessage() = %v, want 'Failed to connect to runtime process'", stateErr.UserMessage())
	}

	if !errors.Is(err, cause) {
		t.Error("Error chain should contain the cause")
	}
}

func TestNewAuthError(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewAuthError("InsufficientPermissions", "service account lacks required permissions", cause)

	var stateErr StateEngineError
	if !errors.As(err, &stateErr) {
		t.Fatal("NewAuthError should return a StateEngineError")
	}

	if stateErr.Category() != ErrorCategoryAuth {
		t.Errorf("Category() = %v, want %v", stateErr.Category(), ErrorCategoryAuth)
	}

	if stateErr.Reason() != "InsufficientPermissions" {
		t.Errorf("Reason() = %v, want InsufficientPermissions", stateErr.Reason())
	}
}

func TestNewMissingDownstreamDependencyError(t *testing.T) {
	cause := errors.New("not found")
	err := NewMissingDownstreamDependencyError("ModelNotFound", "model 'llama-3-8b' not found in catalog", cause)

	var stateErr StateEngineError
	if !errors.As(err, &stateErr) {
		t.Fatal("NewMissingDownstreamDependencyError should return a StateEngineError")
	}

	if stateErr.Category() != ErrorCategoryMissingDownstreamDependency {
		t.Errorf("Category() = %v, want %v", stateErr.Category(), ErrorCategoryMissingDownstreamDependency)
	}

	if stateErr.Reason() != "ModelNotFound" {
		t.Errorf("Reason() = %v, want ModelNotFound", stateErr.Reason())
	}
}

func TestNewInvalidSpecError(t *testing.T) {
	cause := errors.New("validation failed")
	err := NewInvalidSpecError("InvalidConfiguration", "replicas must be positive", cause)

	var stateErr StateEngineError
	if !errors.As(err, &stateErr) {
		t.Fatal("NewInvalidSpecError should return a StateEngineError")
	}

	if stateErr.Category() != ErrorCategoryInvalidSpec {
		t.Errorf("Category() = %v, want %v", stateErr.Category(), ErrorCategoryInvalidSpec)
	}

	if stateErr.Reason() != "InvalidConfiguration" {
		t.Errorf("Reason() = %v, want InvalidConfiguration", stateErr.Reason())
	}
}

func TestStateEngineErrorError(t *testing.T) {
	tests := []struct {
		name string
		err  *stateEngineError
		want string
	}{
		{
			name: "Both reason and message",
			err: &stateEngineError{
				reason:  "NetworkFailure",
				message: "Connection timeout",
			},
			want: "NetworkFailure: Connection timeout",
		},
		{
			name: "Reason only",
			err: &stateEngineError{
				reason: "NetworkFailure",
			},
			want: "NetworkFailure",
		},
		{
			name: "Message only",
			err: &stateEngineError{
				message: "Connection timeout",
			},
			want: "Connection timeout",
		},
		{
			name: "Wrapped error only",
			err: &stateEngineError{
				err: errors.New("underlying error"),
			},
			want: "underlying error",
		},
		{
			name: "Empty error",
			err:  &stateEngineError{},
			want: "unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInfrastructureError("Test", "test message", cause)

	unwrapped := errors.Unwrap(err)
	if !errors.Is(unwrapped, cause) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestIsStateEngineError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "StateEngineError",
			err:  NewInfrastructureError("Test", "test", nil),
			want: true,
		},
		{
			name: "Wrapped StateEngineError",
			err:  fmt.Errorf("wrapped: %w", NewAuthError("Test", "test", nil)),
			want: true,
		},
		{
			name: "Plain error",
			err:  errors.New("plain error"),
			want: false,
		},
		{
			name: "Nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStateEngineError(tt.err); got != tt.want {
				t.Errorf("IsStateEngineError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildErrorSummary(t *testing.T) {
	infra := NewInfrastructureError("LaunchFailed", "exec failed", nil)
	auth := NewAuthError("InsufficientPermissions", "denied", nil)
	missing := NewMissingDownstreamDependencyError("ModelNotFound", "no such model", nil)
	invalid := NewInvalidSpecError("BadGPUCount", "gpu_count must be > 0", nil)
	plain := errors.New("unexpected")

	summary := BuildErrorSummary([]error{infra, auth, missing, invalid, plain, nil})

	if !summary.HasInfrastructureError() || len(summary.InfrastructureErrors) != 1 {
		t.Errorf("expected 1 infrastructure error, got %d", len(summary.InfrastructureErrors))
	}
	if !summary.HasAuthError() || len(summary.AuthErrors) != 1 {
		t.Errorf("expected 1 auth error, got %d", len(summary.AuthErrors))
	}
	if !summary.HasMissingDependency() || len(summary.MissingDeps) != 1 {
		t.Errorf("expected 1 missing dependency error, got %d", len(summary.MissingDeps))
	}
	if !summary.HasInvalidSpec() || len(summary.InvalidSpecs) != 1 {
		t.Errorf("expected 1 invalid spec error, got %d", len(summary.InvalidSpecs))
	}
	if !summary.HasUnclassifiedErrors() || len(summary.UnclassifiedErrors) != 1 {
		t.Errorf("expected 1 unclassified error, got %d", len(summary.UnclassifiedErrors))
	}
	if !summary.HasAnyErrors() {
		t.Error("expected HasAnyErrors() to be true")
	}
}

func TestBuildErrorSummary_WrappedAndEmpty(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NewAuthError("Test", "test", nil))
	summary := BuildErrorSummary([]error{wrapped})
	if len(summary.AuthErrors) != 1 {
		t.Errorf("expected wrapped StateEngineError to be unwrapped into AuthErrors, got %d", len(summary.AuthErrors))
	}

	empty := BuildErrorSummary(nil)
	if empty.HasAnyErrors() {
		t.Error("BuildErrorSummary(nil) should report no errors")
	}
}
