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

// Package catalogio is the on-disk seam for internal/catalog: it reads the
// textual key-value model and recipe files and decodes them into the
// ModelDescriptor and Recipe values catalog.New validates and indexes. It is
// deliberately the only package in this module that touches a catalog file
// on disk, and deliberately does not depend on a YAML library: each file is
// a flat key: value document, with recipe backend blocks nested by
// indentation, parsed with a small scanner.
package catalogio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/amd-enterprise-ai/aim-runtime/internal/catalog"
)

// line is one parsed, indentation-aware line of a catalog text file. Blank
// lines and lines whose trimmed content starts with '#' are dropped before
// this stage.
type line struct {
	indent int
	key    string
	value  string
}

func scanLines(r io.Reader) ([]line, error) {
	var lines []line
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" || strings.HasPrefix(strings.TrimSpace(raw), "#") {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " "))
		content := strings.TrimSpace(raw)
		idx := strings.Index(content, ":")
		if idx == -1 {
			return nil, fmt.Errorf("malformed line %q: expected \"key: value\"", content)
		}
		lines = append(lines, line{
			indent: indent,
			key:    strings.TrimSpace(content[:idx]),
			value:  strings.TrimSpace(content[idx+1:]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

var requiredModelKeys = []string{"model_id", "size", "family", "readiness_level"}

// ParseModelFile decodes one "Model file" document: a flat key: value list
// carrying at minimum model_id, size, family, readiness_level. Unrecognized
// keys are ignored.
func ParseModelFile(r io.Reader) (catalog.ModelDescriptor, error) {
	lines, err := scanLines(r)
	if err != nil {
		return catalog.ModelDescriptor{}, err
	}

	fields := make(map[string]string, len(lines))
	for _, l := range lines {
		fields[l.key] = l.value
	}
	for _, key := range requiredModelKeys {
		if fields[key] == "" {
			return catalog.ModelDescriptor{}, fmt.Errorf("model file missing required key %q", key)
		}
	}

	return catalog.ModelDescriptor{
		ModelID:        fields["model_id"],
		SizeClass:      fields["size"],
		Family:         fields["family"],
		ReadinessLevel: catalog.ReadinessLevel(fields["readiness_level"]),
	}, nil
}

var (
	requiredRecipeKeys = []string{"recipe_id", "model_id", "hardware", "precision"}
	gpuCountKeyPattern = regexp.MustCompile(`^[0-9]+_gpu$`)
)

// ParseRecipeFile decodes one "Recipe file" document: top-level key: value
// pairs (recipe_id, model_id, hardware, precision) plus one or more backend
// blocks (vllm_serve, sglang_serve), each a nested block of gpu-count keys
// matching ^[0-9]+_gpu$ carrying enabled and an optional nested args block.
func ParseRecipeFile(r io.Reader) (catalog.Recipe, error) {
	lines, err := scanLines(r)
	if err != nil {
		return catalog.Recipe{}, err
	}

	recipe := catalog.Recipe{Backends: map[string]map[string]catalog.BackendConfig{}}
	top := make(map[string]string, 4)

	for i := 0; i < len(lines); {
		l := lines[i]
		if l.indent != 0 {
			return catalog.Recipe{}, fmt.Errorf("unexpected indentation before key %q", l.key)
		}
		switch l.key {
		case "vllm_serve", "sglang_serve":
			backend := strings.TrimSuffix(l.key, "_serve")
			byGPU, next, err := parseBackendBlock(lines, i+1, l.indent)
			if err != nil {
				return catalog.Recipe{}, fmt.Errorf("%s: %w", l.key, err)
			}
			recipe.Backends[backend] = byGPU
			i = next
		default:
			top[l.key] = l.value
			i++
		}
	}

	for _, key := range requiredRecipeKeys {
		if top[key] == "" {
			return catalog.Recipe{}, fmt.Errorf("recipe file missing required key %q", key)
		}
	}
	if len(recipe.Backends) == 0 {
		return catalog.Recipe{}, fmt.Errorf("recipe %q declares no vllm_serve or sglang_serve block", top["recipe_id"])
	}

	recipe.RecipeID = top["recipe_id"]
	recipe.ModelID = top["model_id"]
	recipe.HardwareTag = top["hardware"]
	recipe.Precision = catalog.Precision(top["precision"])
	recipe.ReadinessLevel = catalog.ReadinessLevel(top["readiness_level"])
	return recipe, nil
}

// parseBackendBlock consumes every gpu-count entry nested under a
// vllm_serve/sglang_serve header (every line more indented than
// parentIndent), returning the index of the first line outside the block.
func parseBackendBlock(lines []line, start, parentIndent int) (map[string]catalog.BackendConfig, int, error) {
	byGPU := map[string]catalog.BackendConfig{}
	i := start
	for i < len(lines) && lines[i].indent > parentIndent {
		gpuLine := lines[i]
		if !gpuCountKeyPattern.MatchString(gpuLine.key) {
			return nil, 0, fmt.Errorf("malformed gpu-count key %q", gpuLine.key)
		}
		cfg, next := parseBackendConfig(lines, i+1, gpuLine.indent)
		byGPU[gpuLine.key] = cfg
		i = next
	}
	return byGPU, i, nil
}

func parseBackendConfig(lines []line, start, parentIndent int) (catalog.BackendConfig, int) {
	var cfg catalog.BackendConfig
	i := start
	for i < len(lines) && lines[i].indent > parentIndent {
		l := lines[i]
		switch l.key {
		case "enabled":
			cfg.Enabled, _ = strconv.ParseBool(l.value)
			i++
		case "args":
			var args []catalog.KV
			args, i = parseArgsBlock(lines, i+1, l.indent)
			cfg.Args = args
		default:
			i++
		}
	}
	return cfg, i
}

func parseArgsBlock(lines []line, start, parentIndent int) ([]catalog.KV, int) {
	var args []catalog.KV
	i := start
	for i < len(lines) && lines[i].indent > parentIndent {
		args = append(args, catalog.KV{Key: lines[i].key, Value: lines[i].value})
		i++
	}
	return args, i
}

// LoadModelFile opens path and decodes it as a Model file.
func LoadModelFile(path string) (catalog.ModelDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.ModelDescriptor{}, err
	}
	defer func() { _ = f.Close() }()
	return ParseModelFile(f)
}

// LoadRecipeFile opens path and decodes it as a Recipe file.
func LoadRecipeFile(path string) (catalog.Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.Recipe{}, err
	}
	defer func() { _ = f.Close() }()
	return ParseRecipeFile(f)
}

// Load reads every file in modelsDir as a Model file and every file in
// recipesDir as a Recipe file, then builds a *catalog.Catalog via
// catalog.New, so every invariant catalog.New enforces (tensor-parallel
// consistency, valid precisions) is enforced here too. Files are read in
// lexical order within each directory so MalformedCatalog errors are
// reproducible across runs.
func Load(modelsDir, recipesDir string) (*catalog.Catalog, error) {
	modelPaths, err := listFiles(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("catalogio: listing models dir %s: %w", modelsDir, err)
	}
	recipePaths, err := listFiles(recipesDir)
	if err != nil {
		return nil, fmt.Errorf("catalogio: listing recipes dir %s: %w", recipesDir, err)
	}

	models := make([]catalog.ModelDescriptor, 0, len(modelPaths))
	for _, p := range modelPaths {
		m, err := LoadModelFile(p)
		if err != nil {
			return nil, fmt.Errorf("catalogio: %s: %w", p, err)
		}
		models = append(models, m)
	}

	recipes := make([]catalog.Recipe, 0, len(recipePaths))
	for _, p := range recipePaths {
		r, err := LoadRecipeFile(p)
		if err != nil {
			return nil, fmt.Errorf("catalogio: %s: %w", p, err)
		}
		recipes = append(recipes, r)
	}

	return catalog.New(models, recipes)
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
