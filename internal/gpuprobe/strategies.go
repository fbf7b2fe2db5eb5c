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

package gpuprobe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// VendorToolStrategy execs a vendor CLI (rocm-smi by default) and counts
// device rows in its CSV output. The binary and arguments are injectable so
// tests can point at a stub script instead of a real accelerator tool.
type VendorToolStrategy struct {
	name string
	args []string
	// execCommand is overridable in tests.
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

func NewVendorToolStrategy(name string, args ...string) *VendorToolStrategy {
	return &VendorToolStrategy{name: name, args: args, execCommand: exec.CommandContext}
}

func (s *VendorToolStrategy) Name() string { return "vendor-tool:" + s.name }

func (s *VendorToolStrategy) Detect(ctx context.Context) (int, error) {
	cmd := s.execCommand(ctx, s.name, s.args...)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s.name, err)
	}
	return countDeviceRows(string(out)), nil
}

// countDeviceRows counts non-header, non-empty CSV lines. rocm-smi --showid
// --csv emits a header row ("device,GPU ID") followed by one row per device.
func countDeviceRows(output string) int {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	count := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i == 0 && looksLikeHeader(line) {
			continue
		}
		count++
	}
	return count
}

func looksLikeHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "device") || strings.Contains(lower, "gpu")
}

// EnvStrategy reads the first set comma-separated device-index environment
// variable from an ordered fallback list (e.g. ROCR_VISIBLE_DEVICES,
// HIP_VISIBLE_DEVICES, CUDA_VISIBLE_DEVICES) and counts its entries.
type EnvStrategy struct {
	varNames []string
	lookup   func(string) (string, bool)
}

func NewEnvStrategy(varNames ...string) *EnvStrategy {
	return &EnvStrategy{varNames: varNames, lookup: os.LookupEnv}
}

func (s *EnvStrategy) Name() string { return "env:" + strings.Join(s.varNames, ",") }

func (s *EnvStrategy) Detect(_ context.Context) (int, error) {
	for _, name := range s.varNames {
		val, ok := s.lookup(name)
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		return countIndexList(val)
	}
	return 0, fmt.Errorf("none of %v set", s.varNames)
}

func countIndexList(val string) (int, error) {
	parts := strings.Split(val, ",")
	count := 0
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err != nil {
			return 0, fmt.Errorf("malformed device index %q: %w", p, err)
		}
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("empty device index list")
	}
	return count, nil
}

// CgroupStrategy counts device nodes under a sysfs/devfs root (/dev/dri by
// default), for container runtimes that expose accelerators as device nodes
// without setting an env var.
type CgroupStrategy struct {
	root    string
	readDir func(string) ([]os.DirEntry, error)
}

func NewCgroupStrategy(root string) *CgroupStrategy {
	return &CgroupStrategy{root: root, readDir: os.ReadDir}
}

func (s *CgroupStrategy) Name() string { return "cgroup:" + s.root }

func (s *CgroupStrategy) Detect(_ context.Context) (int, error) {
	entries, err := s.readDir(s.root)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "renderD") || strings.HasPrefix(e.Name(), "card") {
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("no device nodes under %s", s.root)
	}
	return count, nil
}
