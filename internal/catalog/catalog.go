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

// Package catalog provides read-only, indexed access to model metadata and
// serving recipes loaded once at process startup. Nothing in this package
// parses YAML or touches disk; New is the seam an external loader calls into
// with already-decoded ModelDescriptor and Recipe values.
package catalog

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
)

// ReadinessLevel is how confident the catalog author is in a model.
type ReadinessLevel string

const (
	ReadinessExperimental    ReadinessLevel = "experimental"
	ReadinessProductionReady ReadinessLevel = "production-ready"
)

// Precision is the numeric precision a recipe serves a model at.
type Precision string

const (
	PrecisionFP16 Precision = "fp16"
	PrecisionBF16 Precision = "bf16"
	PrecisionFP8  Precision = "fp8"
	PrecisionINT8 Precision = "int8"
	PrecisionINT4 Precision = "int4"
)

var validPrecisions = map[Precision]bool{
	PrecisionFP16: true,
	PrecisionBF16: true,
	PrecisionFP8:  true,
	PrecisionINT8: true,
	PrecisionINT4: true,
}

// ModelDescriptor is immutable metadata about one servable model.
type ModelDescriptor struct {
	ModelID        string
	SizeClass      string
	Family         string
	ReadinessLevel ReadinessLevel
}

// KV is an ordered key/value pair, used wherever command-line argument order
// must be deterministic (see BackendConfig.Args).
type KV struct {
	Key   string
	Value string
}

// BackendConfig is the per-(backend, gpu-count) serving configuration.
type BackendConfig struct {
	Enabled bool
	Args    []KV
}

// Arg returns the value for key and whether it was present, without forcing
// callers to walk Args themselves.
func (b BackendConfig) Arg(key string) (string, bool) {
	for _, kv := range b.Args {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Recipe is an immutable hardware- and precision-specific serving
// configuration for one model. Backends maps a backend name (vllm, sglang)
// to a gpu-count-key ("1_gpu", "2_gpu", ...) to BackendConfig.
type Recipe struct {
	RecipeID       string
	ModelID        string
	HardwareTag    string
	Precision      Precision
	ReadinessLevel ReadinessLevel
	Backends       map[string]map[string]BackendConfig
	// Env is explicit environment the recipe author wants set on the
	// launched process, applied as the last (highest-precedence) tier of
	// the Config Materializer's environment merge.
	Env []KV
}

// BackendConfigFor returns the BackendConfig for backend at the given GPU
// count, and whether one exists at all (regardless of Enabled).
func (r Recipe) BackendConfigFor(backend string, gpuCount int) (BackendConfig, bool) {
	byGPU, ok := r.Backends[backend]
	if !ok {
		return BackendConfig{}, false
	}
	cfg, ok := byGPU[gpuCountKey(gpuCount)]
	return cfg, ok
}

func gpuCountKey(n int) string {
	return fmt.Sprintf("%d_gpu", n)
}

var gpuCountKeyPattern = regexp.MustCompile(`^([0-9]+)_gpu$`)

// Catalog is an immutable, indexed view over a model/recipe set. It is safe
// for concurrent read access from any number of goroutines: nothing ever
// mutates a Catalog after New returns one.
type Catalog struct {
	models     map[string]ModelDescriptor
	recipesFor map[string][]Recipe
}

// New builds a Catalog from already-decoded models and recipes, indexing
// recipes by model_id so RecipesFor is O(1) + O(k). It validates the
// tensor-parallel invariant (for every enabled N_gpu backend config, if
// --tensor-parallel-size is present, its value equals N) and returns a
// MalformedCatalog-kind error, fatal at startup, on violation.
func New(models []ModelDescriptor, recipes []Recipe) (*Catalog, error) {
	c := &Catalog{
		models:     make(map[string]ModelDescriptor, len(models)),
		recipesFor: make(map[string][]Recipe),
	}

	for _, m := range models {
		c.models[m.ModelID] = m
	}

	for _, r := range recipes {
		if !validPrecisions[r.Precision] {
			return nil, coreerr.NewMalformedCatalog("recipe %q: invalid precision %q", r.RecipeID, r.Precision)
		}
		if err := validateTensorParallel(r); err != nil {
			return nil, err
		}
		c.recipesFor[r.ModelID] = append(c.recipesFor[r.ModelID], r)
	}

	return c, nil
}

func validateTensorParallel(r Recipe) error {
	for backend, byGPU := range r.Backends {
		for gpuKey, cfg := range byGPU {
			if !cfg.Enabled {
				continue
			}
			m := gpuCountKeyPattern.FindStringSubmatch(gpuKey)
			if m == nil {
				return coreerr.NewMalformedCatalog("recipe %q: backend %q has malformed gpu-count key %q", r.RecipeID, backend, gpuKey)
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return coreerr.NewMalformedCatalog("recipe %q: backend %q gpu-count key %q: %v", r.RecipeID, backend, gpuKey, err)
			}
			tpValue, ok := cfg.Arg("--tensor-parallel-size")
			if !ok {
				continue
			}
			tp, err := strconv.Atoi(tpValue)
			if err != nil {
				return coreerr.NewMalformedCatalog("recipe %q: backend %q %q: --tensor-parallel-size %q is not an integer", r.RecipeID, backend, gpuKey, tpValue)
			}
			if tp != n {
				return coreerr.NewMalformedCatalog("recipe %q: backend %q %q: --tensor-parallel-size=%d does not equal gpu count %d", r.RecipeID, backend, gpuKey, tp, n)
			}
		}
	}
	return nil
}

// GetModel returns the ModelDescriptor for model_id, or a NotFound-kind error.
func (c *Catalog) GetModel(modelID string) (ModelDescriptor, error) {
	m, ok := c.models[modelID]
	if !ok {
		return ModelDescriptor{}, coreerr.NewNotFound("model %q not found in catalog", modelID)
	}
	return m, nil
}

// RecipesFor returns every recipe whose model_id equals modelID. The
// returned slice is the catalog's own backing slice; callers must not
// mutate it.
func (c *Catalog) RecipesFor(modelID string) []Recipe {
	return c.recipesFor[modelID]
}
