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

package catalog

import (
	"testing"

	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
)

func qwen32BRecipe() Recipe {
	return Recipe{
		RecipeID:       "qwen3-32b-mi300x-bf16",
		ModelID:        "Qwen/Qwen3-32B",
		HardwareTag:    "MI300X",
		Precision:      PrecisionBF16,
		ReadinessLevel: ReadinessProductionReady,
		Backends: map[string]map[string]BackendConfig{
			"vllm": {
				"4_gpu": {
					Enabled: true,
					Args: []KV{
						{Key: "--tensor-parallel-size", Value: "4"},
						{Key: "--port", Value: "8000"},
					},
				},
			},
		},
	}
}

func TestNew_ValidCatalog(t *testing.T) {
	models := []ModelDescriptor{
		{ModelID: "Qwen/Qwen3-32B", SizeClass: "32B", Family: "qwen", ReadinessLevel: ReadinessProductionReady},
	}
	c, err := New(models, []Recipe{qwen32BRecipe()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m, err := c.GetModel("Qwen/Qwen3-32B")
	if err != nil {
		t.Fatalf("GetModel() error = %v", err)
	}
	if m.SizeClass != "32B" {
		t.Errorf("SizeClass = %q, want 32B", m.SizeClass)
	}

	recipes := c.RecipesFor("Qwen/Qwen3-32B")
	if len(recipes) != 1 || recipes[0].RecipeID != "qwen3-32b-mi300x-bf16" {
		t.Errorf("RecipesFor() = %+v", recipes)
	}
}

func TestGetModel_NotFound(t *testing.T) {
	c, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.GetModel("nonexistent/model")
	if coreerr.Classify(err) != coreerr.KindNotFound {
		t.Errorf("Classify() = %v, want KindNotFound", coreerr.Classify(err))
	}
}

func TestRecipesFor_OnlyMatchingModelID(t *testing.T) {
	recipes := []Recipe{
		qwen32BRecipe(),
		{
			RecipeID:  "other-model-fp16",
			ModelID:   "Foo/Bar-7B",
			Precision: PrecisionFP16,
			Backends: map[string]map[string]BackendConfig{
				"vllm": {"1_gpu": {Enabled: true, Args: []KV{{Key: "--tensor-parallel-size", Value: "1"}}}},
			},
		},
	}
	c, err := New(nil, recipes)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := c.RecipesFor("Qwen/Qwen3-32B")
	if len(got) != 1 {
		t.Fatalf("RecipesFor() returned %d recipes, want 1", len(got))
	}
	for _, r := range got {
		if r.ModelID != "Qwen/Qwen3-32B" {
			t.Errorf("RecipesFor() leaked recipe for %q", r.ModelID)
		}
	}
}

func TestNew_MalformedCatalog_TensorParallelMismatch(t *testing.T) {
	recipes := []Recipe{
		{
			RecipeID:  "bad-recipe",
			ModelID:   "Foo/Bar-7B",
			Precision: PrecisionFP16,
			Backends: map[string]map[string]BackendConfig{
				"vllm": {
					"4_gpu": {
						Enabled: true,
						Args:    []KV{{Key: "--tensor-parallel-size", Value: "2"}},
					},
				},
			},
		},
	}
	_, err := New(nil, recipes)
	if coreerr.Classify(err) != coreerr.KindMalformedCatalog {
		t.Fatalf("New() error = %v, want KindMalformedCatalog", err)
	}
}

func TestNew_MalformedCatalog_DisabledMismatchIsIgnored(t *testing.T) {
	recipes := []Recipe{
		{
			RecipeID:  "disabled-recipe",
			ModelID:   "Foo/Bar-7B",
			Precision: PrecisionFP16,
			Backends: map[string]map[string]BackendConfig{
				"vllm": {
					"4_gpu": {
						Enabled: false,
						Args:    []KV{{Key: "--tensor-parallel-size", Value: "999"}},
					},
				},
			},
		},
	}
	if _, err := New(nil, recipes); err != nil {
		t.Fatalf("New() error = %v, want nil (disabled config should not enforce invariant)", err)
	}
}

func TestNew_MalformedCatalog_InvalidPrecision(t *testing.T) {
	recipes := []Recipe{
		{RecipeID: "bad-precision", ModelID: "Foo/Bar-7B", Precision: Precision("fp32")},
	}
	_, err := New(nil, recipes)
	if coreerr.Classify(err) != coreerr.KindMalformedCatalog {
		t.Fatalf("New() error = %v, want KindMalformedCatalog", err)
	}
}

func TestBackendConfigFor(t *testing.T) {
	recipes := []Recipe{qwen32BRecipe()}
	c, err := New(nil, recipes)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r := c.RecipesFor("Qwen/Qwen3-32B")[0]

	cfg, ok := r.BackendConfigFor("vllm", 4)
	if !ok || !cfg.Enabled {
		t.Fatalf("BackendConfigFor(vllm, 4) = %+v, %v", cfg, ok)
	}

	_, ok = r.BackendConfigFor("vllm", 8)
	if ok {
		t.Error("BackendConfigFor(vllm, 8) should not exist")
	}

	_, ok = r.BackendConfigFor("sglang", 4)
	if ok {
		t.Error("BackendConfigFor(sglang, 4) should not exist")
	}
}
