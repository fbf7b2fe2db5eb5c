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

package utils

import "testing"

func TestGenerateDerivedName(t *testing.T) {
	name, err := GenerateDerivedName([]string{"aim", "llama-3-8b", "2gpu"},
		WithHashSource("precision=fp16", "backend=vllm"))
	if err != nil {
		t.Fatalf("GenerateDerivedName() error = %v", err)
	}
	if len(name) == 0 || len(name) > MaxKubernetesNameLength {
		t.Fatalf("GenerateDerivedName() = %q, want len in (0,%d]", name, MaxKubernetesNameLength)
	}

	name2, err := GenerateDerivedName([]string{"aim", "llama-3-8b", "2gpu"},
		WithHashSource("precision=fp16", "backend=vllm"))
	if err != nil {
		t.Fatalf("GenerateDerivedName() error = %v", err)
	}
	if name != name2 {
		t.Errorf("GenerateDerivedName() is not deterministic: %q != %q", name, name2)
	}

	name3, err := GenerateDerivedName([]string{"aim", "llama-3-8b", "2gpu"},
		WithHashSource("precision=int8", "backend=vllm"))
	if err != nil {
		t.Fatalf("GenerateDerivedName() error = %v", err)
	}
	if name == name3 {
		t.Errorf("GenerateDerivedName() should differ when hash source differs: both %q", name)
	}
}

func TestGenerateDerivedName_NoHash(t *testing.T) {
	name, err := GenerateDerivedName([]string{"aim-endpoint", "prod"})
	if err != nil {
		t.Fatalf("GenerateDerivedName() error = %v", err)
	}
	if name != "aim-endpoint-prod" {
		t.Errorf("GenerateDerivedName() = %q, want %q", name, "aim-endpoint-prod")
	}
}

func TestGenerateDerivedName_EmptyParts(t *testing.T) {
	if _, err := GenerateDerivedName(nil); err == nil {
		t.Error("GenerateDerivedName(nil) expected error, got nil")
	}
}

func TestGenerateDerivedName_Truncation(t *testing.T) {
	parts := []string{"an-extremely-long-endpoint-name-that-will-not-fit-within-the-length-budget"}
	name, err := GenerateDerivedName(parts, WithHashSource("x"), WithMaxLength(30))
	if err != nil {
		t.Fatalf("GenerateDerivedName() error = %v", err)
	}
	if len(name) > 30 {
		t.Errorf("GenerateDerivedName() = %q, len %d exceeds max 30", name, len(name))
	}
}

func TestSanitizeLabelValue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "simple", in: "fp16", want: "fp16"},
		{name: "uppercase folded", in: "FP16", want: "fp16"},
		{name: "invalid chars replaced", in: "mi300x/gpu", want: "mi300x_gpu"},
		{name: "trimmed edges", in: "-.value.-", want: "value"},
		{name: "all invalid", in: "///", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeLabelValue(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("SanitizeLabelValue(%q) expected error, got nil (value %q)", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizeLabelValue(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeLabelValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
