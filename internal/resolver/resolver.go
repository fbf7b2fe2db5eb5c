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

// Package resolver transforms a deploy Request into a ResolvedPlan via a
// four-stage pipeline: probe & normalize, target gpu_count, target
// precision, and recipe matching with fallback.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
	"github.com/amd-enterprise-ai/aim-runtime/internal/coreerr"
	"github.com/amd-enterprise-ai/aim-runtime/internal/gpuprobe"
)

// Request is caller input to Resolve.
type Request struct {
	ModelID          string
	GPUCount         *int
	Precision        *catalog.Precision
	Backend          string
	Port             int
	UseCache         bool
	ReadinessTimeout int // seconds; see constants.DefaultReadinessTimeoutSeconds for the default
}

// AutoSelected records, per field, whether Resolve derived the value itself
// rather than honoring an explicit request override.
type AutoSelected struct {
	GPUCount  bool
	Precision bool
}

// ResolvedPlan is the output of Resolve, consumed by the Config Materializer.
type ResolvedPlan struct {
	RecipeID            string
	ModelID             string
	GPUCount            int
	Precision           catalog.Precision
	Backend             string
	BackendConfig       catalog.BackendConfig
	DetectedRuntimeGPUs int
	AutoSelected        AutoSelected
}

// CatalogReader is the subset of *catalog.Catalog the resolver depends on,
// so tests can supply a fake without building a full Catalog.
type CatalogReader interface {
	GetModel(modelID string) (catalog.ModelDescriptor, error)
	RecipesFor(modelID string) []catalog.Recipe
}

// Prober is the subset of *gpuprobe.Prober the resolver depends on.
type Prober interface {
	Probe(ctx context.Context) gpuprobe.Counts
}

// idealGPUCount implements the size_class → ideal gpu_count table used
// when the caller does not supply an explicit gpu_count override.
var idealGPUCount = map[string]int{
	"7B": 1, "8B": 1,
	"13B": 2, "14B": 2,
	"32B": 4, "34B": 4,
	"70B": 8, "72B": 8,
}

// precisionBySizeClass implements the default precision derivation table
// used when the caller does not supply an explicit precision override.
func precisionBySizeClass(sizeClass string) catalog.Precision {
	switch sizeClass {
	case "7B", "8B":
		return catalog.PrecisionFP16
	default:
		return catalog.PrecisionBF16
	}
}

// precisionFallbackOrder is the fixed fallback list tried when the target
// precision has no matching recipe: int8/int4 never participate in
// automatic fallback, reachable only via an explicit request override.
var precisionFallbackOrder = []catalog.Precision{catalog.PrecisionBF16, catalog.PrecisionFP16, catalog.PrecisionFP8}

// gpuCountFallbackOrder is the fixed decreasing list tried, at a given
// precision, when the target gpu_count has no matching recipe.
var gpuCountFallbackOrder = []int{8, 4, 2, 1}

// Resolver ties a CatalogReader and Prober together with a pluggable
// per-backend gpu-count key scheme, so additional backends are addable
// without Resolver code changes.
type Resolver struct {
	Catalog  CatalogReader
	Prober   Prober
	backends *BackendRegistry
}

// New builds a Resolver with the default vllm/sglang backend registrations.
func New(cat CatalogReader, prober Prober) *Resolver {
	return &Resolver{Catalog: cat, Prober: prober, backends: DefaultBackendRegistry()}
}

// WithBackendRegistry overrides the default backend registry, for tests and
// callers that want to register additional backends.
func (r *Resolver) WithBackendRegistry(reg *BackendRegistry) *Resolver {
	r.backends = reg
	return r
}

// attempt records one (gpu_count, precision) tuple the matcher tried, for
// NoRecipe error reporting.
type attempt struct {
	gpuCount  int
	precision catalog.Precision
}

func (a attempt) String() string {
	return fmt.Sprintf("{gpu_count=%d precision=%s}", a.gpuCount, a.precision)
}

// Resolve runs the four-stage pipeline against req.
func (r *Resolver) Resolve(ctx context.Context, req Request) (ResolvedPlan, error) {
	backend := req.Backend
	if backend == "" {
		backend = "vllm"
	}

	// Stage 1 — probe & normalize.
	counts := r.Prober.Probe(ctx)
	available := counts.RuntimeVisible
	if available == 0 {
		return ResolvedPlan{}, coreerr.NewNoAccelerator("runtime_visible GPU count is 0 for model %q", req.ModelID)
	}

	model, err := r.Catalog.GetModel(req.ModelID)
	modelKnown := err == nil

	// Stage 2 — target gpu_count.
	targetGPUs, autoGPU := r.targetGPUCount(req, available, model, modelKnown)

	// Stage 3 — target precision.
	targetPrecision, autoPrecision := targetPrecision(req, model, modelKnown)

	// Stage 4 — match recipe with fallback.
	recipes := r.Catalog.RecipesFor(req.ModelID)
	recipe, cfg, gpuCount, precision, attempts := r.matchWithFallback(recipes, backend, targetGPUs, targetPrecision, available)
	if recipe == nil {
		return ResolvedPlan{}, coreerr.NewNoRecipe("no recipe for model %q backend %q: attempted %v", req.ModelID, backend, attempts)
	}

	return ResolvedPlan{
		RecipeID:            recipe.RecipeID,
		ModelID:             req.ModelID,
		GPUCount:            gpuCount,
		Precision:           precision,
		Backend:             backend,
		BackendConfig:       cfg,
		DetectedRuntimeGPUs: available,
		AutoSelected:        AutoSelected{GPUCount: autoGPU, Precision: autoPrecision},
	}, nil
}

func (r *Resolver) targetGPUCount(req Request, available int, model catalog.ModelDescriptor, modelKnown bool) (int, bool) {
	if req.GPUCount != nil {
		return min(*req.GPUCount, available), false
	}
	if modelKnown {
		if ideal, ok := idealGPUCount[model.SizeClass]; ok {
			return min(ideal, available), true
		}
	}
	return available, true
}

func targetPrecision(req Request, model catalog.ModelDescriptor, modelKnown bool) (catalog.Precision, bool) {
	if req.Precision != nil {
		return *req.Precision, false
	}
	sizeClass := ""
	if modelKnown {
		sizeClass = model.SizeClass
	}
	return precisionBySizeClass(sizeClass), true
}

// matchWithFallback implements the matching order: exact target, then
// decreasing gpu counts at the same precision, then precision fallbacks
// (each with the same decreasing gpu-count list).
func (r *Resolver) matchWithFallback(
	recipes []catalog.Recipe,
	backend string,
	targetGPUs int,
	targetPrecision catalog.Precision,
	available int,
) (*catalog.Recipe, catalog.BackendConfig, int, catalog.Precision, []attempt) {
	var attempts []attempt
	tried := map[catalog.Precision]bool{}

	try := func(gpuCount int, precision catalog.Precision) (*catalog.Recipe, catalog.BackendConfig, bool) {
		attempts = append(attempts, attempt{gpuCount: gpuCount, precision: precision})
		return r.bestMatch(recipes, backend, gpuCount, precision)
	}

	// 1. Exact target.
	if recipe, cfg, ok := try(targetGPUs, targetPrecision); ok {
		return recipe, cfg, targetGPUs, targetPrecision, attempts
	}
	tried[targetPrecision] = true

	// 2. Decreasing GPU counts at the same precision.
	for _, n := range gpuCountFallbackOrder {
		if n == targetGPUs || n > available {
			continue
		}
		if recipe, cfg, ok := try(n, targetPrecision); ok {
			return recipe, cfg, n, targetPrecision, attempts
		}
	}

	// 3. Precision fallbacks, each with the same decreasing gpu-count list.
	for _, precision := range precisionFallbackOrder {
		if tried[precision] {
			continue
		}
		for _, n := range gpuCountFallbackOrder {
			if n > available {
				continue
			}
			if recipe, cfg, ok := try(n, precision); ok {
				return recipe, cfg, n, precision, attempts
			}
		}
	}

	return nil, catalog.BackendConfig{}, 0, "", attempts
}

// bestMatch finds, among recipes matching (backend, gpuCount, precision,
// enabled), the tie-break winner: production-ready over experimental, then
// lexicographically smallest recipe_id.
func (r *Resolver) bestMatch(recipes []catalog.Recipe, backend string, gpuCount int, precision catalog.Precision) (*catalog.Recipe, catalog.BackendConfig, bool) {
	key := r.backends.Key(backend, gpuCount)

	type candidate struct {
		recipe catalog.Recipe
		config catalog.BackendConfig
	}

	var candidates []candidate
	for _, recipe := range recipes {
		if recipe.Precision != precision {
			continue
		}
		byGPU, ok := recipe.Backends[backend]
		if !ok {
			continue
		}
		cfg, ok := byGPU[key]
		if !ok || !cfg.Enabled {
			continue
		}
		candidates = append(candidates, candidate{recipe: recipe, config: cfg})
	}

	if len(candidates) == 0 {
		return nil, catalog.BackendConfig{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].recipe, candidates[j].recipe
		if pi.ReadinessLevel != pj.ReadinessLevel {
			return pi.ReadinessLevel == catalog.ReadinessProductionReady
		}
		return pi.RecipeID < pj.RecipeID
	})

	best := candidates[0]
	return &best.recipe, best.config, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
