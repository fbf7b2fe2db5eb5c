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

package catalogio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleModelFile = `model_id: meta/llama3-8b
size: 8B
family: llama3
readiness_level: production-ready
`

const sampleRecipeFile = `recipe_id: llama3-8b-vllm-fp16
model_id: meta/llama3-8b
hardware: mi300x
precision: fp16
readiness_level: production-ready
vllm_serve:
  1_gpu:
    enabled: true
    args:
      --tensor-parallel-size: 1
      --gpu-memory-utilization: 0.9
  2_gpu:
    enabled: false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	return path
}

func TestParseModelFile(t *testing.T) {
	m, err := ParseModelFile(strings.NewReader(sampleModelFile))
	if err != nil {
		t.Fatalf("ParseModelFile() error = %v", err)
	}
	if m.ModelID != "meta/llama3-8b" || m.SizeClass != "8B" || m.Family != "llama3" {
		t.Errorf("ParseModelFile() = %+v, unexpected fields", m)
	}
}

func TestParseModelFileMissingRequiredKey(t *testing.T) {
	_, err := ParseModelFile(strings.NewReader("model_id: meta/llama3-8b\nsize: 8B\n"))
	if err == nil {
		t.Fatal("ParseModelFile() error = nil, want error for missing family/readiness_level")
	}
}

func TestParseRecipeFile(t *testing.T) {
	r, err := ParseRecipeFile(strings.NewReader(sampleRecipeFile))
	if err != nil {
		t.Fatalf("ParseRecipeFile() error = %v", err)
	}
	if r.RecipeID != "llama3-8b-vllm-fp16" || r.ModelID != "meta/llama3-8b" {
		t.Fatalf("ParseRecipeFile() = %+v, unexpected identity fields", r)
	}

	cfg, ok := r.BackendConfigFor("vllm", 1)
	if !ok || !cfg.Enabled {
		t.Fatalf("BackendConfigFor(vllm, 1) = %+v, %v, want enabled", cfg, ok)
	}
	if len(cfg.Args) != 2 || cfg.Args[0].Key != "--tensor-parallel-size" || cfg.Args[0].Value != "1" {
		t.Errorf("args = %+v, want ordered [--tensor-parallel-size=1, --gpu-memory-utilization=0.9]", cfg.Args)
	}

	cfg2, ok := r.BackendConfigFor("vllm", 2)
	if !ok || cfg2.Enabled {
		t.Errorf("BackendConfigFor(vllm, 2) = %+v, %v, want present and disabled", cfg2, ok)
	}
}

func TestParseRecipeFileMissingBackendBlock(t *testing.T) {
	_, err := ParseRecipeFile(strings.NewReader("recipe_id: r\nmodel_id: m\nhardware: mi300x\nprecision: fp16\n"))
	if err == nil {
		t.Fatal("ParseRecipeFile() error = nil, want error for missing backend block")
	}
}

func TestParseRecipeFileMalformedGPUKey(t *testing.T) {
	bad := "recipe_id: r\nmodel_id: m\nhardware: mi300x\nprecision: fp16\nvllm_serve:\n  four_gpu:\n    enabled: true\n"
	if _, err := ParseRecipeFile(strings.NewReader(bad)); err == nil {
		t.Fatal("ParseRecipeFile() error = nil, want error for malformed gpu-count key")
	}
}

func TestLoad(t *testing.T) {
	modelsDir := t.TempDir()
	recipesDir := t.TempDir()
	writeFile(t, modelsDir, "llama3-8b.model", sampleModelFile)
	writeFile(t, recipesDir, "llama3-8b-vllm-fp16.recipe", sampleRecipeFile)

	cat, err := Load(modelsDir, recipesDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	model, err := cat.GetModel("meta/llama3-8b")
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	if model.SizeClass != "8B" {
		t.Errorf("SizeClass = %q, want 8B", model.SizeClass)
	}

	recipes := cat.RecipesFor("meta/llama3-8b")
	if len(recipes) != 1 || recipes[0].RecipeID != "llama3-8b-vllm-fp16" {
		t.Errorf("RecipesFor() = %+v, want one llama3-8b-vllm-fp16 recipe", recipes)
	}
}

func TestLoadRejectsMismatchedTensorParallel(t *testing.T) {
	modelsDir := t.TempDir()
	recipesDir := t.TempDir()
	bad := "recipe_id: bad\nmodel_id: m\nhardware: mi300x\nprecision: fp16\nvllm_serve:\n  2_gpu:\n    enabled: true\n    args:\n      --tensor-parallel-size: 1\n"
	writeFile(t, recipesDir, "bad.recipe", bad)

	if _, err := Load(modelsDir, recipesDir); err == nil {
		t.Fatal("Load() error = nil, want tensor-parallel mismatch error")
	}
}

func TestLoadMissingDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Load() error = nil, want error for missing directory")
	}
}
